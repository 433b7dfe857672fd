package mailchimp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// response is the JSON body Mailchimp wraps in the JSONP callback.
type response struct {
	Result string `json:"result"`
	Msg    string `json:"msg"`
}

// fieldPrefix matches the "0 - " field index Mailchimp puts in front of validation messages.
var fieldPrefix = regexp.MustCompile(`^\d+\s*-\s*`)

// unwrapJSONP decodes `callback({...})` (or a bare JSON object) into a response.
func unwrapJSONP(body []byte) (response, error) {
	var resp response
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] != '{' {
		open := bytes.IndexByte(body, '(')
		end := bytes.LastIndexByte(body, ')')
		if open < 0 || end <= open {
			return resp, fmt.Errorf("unexpected JSONP envelope")
		}
		body = body[open+1 : end]
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// cleanMessage turns a Mailchimp msg into plain text: the field index prefix is
// dropped and any markup (profile links and the like) is reduced to its text.
func cleanMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ""
	}
	msg = fieldPrefix.ReplaceAllString(msg, "")
	if strings.ContainsAny(msg, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg)); err == nil {
			msg = doc.Text()
		}
	}
	return strings.Join(strings.Fields(msg), " ")
}
