package mailchimp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Its-donkey/Boostalk/internal/waitlist"
)

func TestJSONPEndpoint(t *testing.T) {
	u, err := JSONPEndpoint(DefaultFormURL)
	if err != nil {
		t.Fatalf("JSONPEndpoint: %v", err)
	}
	if u.Path != "/subscribe/post-json" {
		t.Fatalf("expected post-json path, got %q", u.Path)
	}
	if u.Query().Get("u") != "2276722dc13d2df34b48d99de" || u.Query().Get("id") != "f7873189db" {
		t.Fatalf("expected list parameters preserved, got %q", u.RawQuery)
	}

	if _, err := JSONPEndpoint("  "); !errors.Is(err, ErrEndpointRequired) {
		t.Fatalf("expected ErrEndpointRequired, got %v", err)
	}
	for _, bad := range []string{"ftp://x.list-manage.com/subscribe/post", "https:///subscribe/post", "https://example.com/signup"} {
		if _, err := JSONPEndpoint(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if u, err := JSONPEndpoint("https://x.list-manage.com/subscribe/post-json?u=1"); err != nil || u.Path != "/subscribe/post-json" {
		t.Fatalf("expected post-json URL kept, got %v, %v", u, err)
	}
}

func TestCleanMessage(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"Thank you for subscribing!", "Thank you for subscribing!"},
		{"0 - Please enter a value", "Please enter a value"},
		{"0 -   An email address must contain a single @.", "An email address must contain a single @."},
		{
			`user@example.com is already subscribed to list Boostalk. <a href="https://x.list-manage.com/profile">Click here to update your profile</a>`,
			"user@example.com is already subscribed to list Boostalk. Click here to update your profile",
		},
		{"Too many subscribe attempts &amp; more", "Too many subscribe attempts & more"},
	}
	for _, tc := range cases {
		if got := cleanMessage(tc.in); got != tc.want {
			t.Fatalf("cleanMessage(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestUnwrapJSONP(t *testing.T) {
	resp, err := unwrapJSONP([]byte(`cb_1({"result":"error","msg":"Member Exists"})`))
	if err != nil || resp.Result != "error" || resp.Msg != "Member Exists" {
		t.Fatalf("unexpected result %+v, %v", resp, err)
	}
	if resp, err := unwrapJSONP([]byte(`{"result":"success","msg":"ok"}`)); err != nil || resp.Result != "success" {
		t.Fatalf("expected bare JSON accepted, got %+v, %v", resp, err)
	}
	if _, err := unwrapJSONP([]byte("<html>oops</html>")); err == nil {
		t.Fatal("expected error for HTML body")
	}
}

// newMailchimpServer answers like the JSONP endpoint, choosing the body per email.
func newMailchimpServer(t *testing.T, hits *atomic.Int32, reply func(email string) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/subscribe/post-json" {
			t.Errorf("expected JSONP path, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		status, body := reply(q.Get("EMAIL"))
		w.WriteHeader(status)
		fmt.Fprintf(w, "%s(%s)", q.Get("c"), body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, threshold uint32) *Client {
	t.Helper()
	client, err := New(Options{
		FormURL:          srv.URL + "/subscribe/post?u=abc&id=def",
		Timeout:          time.Second,
		BreakerThreshold: threshold,
		BreakerTimeout:   time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func collect(t *testing.T, ch <-chan waitlist.Update) []waitlist.Update {
	t.Helper()
	var got []waitlist.Update
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, u)
		case <-timeout:
			t.Fatal("timed out waiting for updates")
		}
	}
}

func TestSubscribeSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(email string) (int, string) {
		if email != "user@example.com" {
			t.Errorf("expected EMAIL parameter, got %q", email)
		}
		return http.StatusOK, `{"result":"success","msg":"Thank you for subscribing!"}`
	})
	client := newTestClient(t, srv, 5)
	if want := srv.URL + "/subscribe/post-json?u=abc&id=def"; client.Endpoint() != want {
		t.Fatalf("expected endpoint %q, got %q", want, client.Endpoint())
	}

	got := collect(t, client.Subscribe(context.Background(), "user@example.com"))
	if len(got) != 2 {
		t.Fatalf("expected sending + terminal update, got %v", got)
	}
	if got[0].Status != waitlist.StatusSending {
		t.Fatalf("expected sending first, got %s", got[0].Status)
	}
	if got[1].Status != waitlist.StatusSuccess || got[1].Message != "Thank you for subscribing!" {
		t.Fatalf("expected success, got %+v", got[1])
	}
}

func TestSubscribeRefusal(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(string) (int, string) {
		return http.StatusOK, `{"result":"error","msg":"0 - Member Exists"}`
	})
	client := newTestClient(t, srv, 5)

	got := collect(t, client.Subscribe(context.Background(), "user@example.com"))
	last := got[len(got)-1]
	if last.Status != waitlist.StatusError || last.Message != "Member Exists" {
		t.Fatalf("expected Member Exists error, got %+v", last)
	}
}

func TestSubscribeErrorWithoutMessage(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(string) (int, string) {
		return http.StatusOK, `{"result":"error","msg":""}`
	})
	client := newTestClient(t, srv, 5)

	got := collect(t, client.Subscribe(context.Background(), "user@example.com"))
	if last := got[len(got)-1]; last.Message != waitlist.FallbackErrorMessage {
		t.Fatalf("expected fallback message, got %q", last.Message)
	}
}

func TestTransportFailureUsesFallback(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(string) (int, string) {
		return http.StatusBadGateway, `{}`
	})
	client := newTestClient(t, srv, 5)

	got := collect(t, client.Subscribe(context.Background(), "user@example.com"))
	last := got[len(got)-1]
	if last.Status != waitlist.StatusError || last.Message != waitlist.FallbackErrorMessage {
		t.Fatalf("expected fallback error, got %+v", last)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(string) (int, string) {
		return http.StatusInternalServerError, `{}`
	})
	client := newTestClient(t, srv, 2)

	for i := 0; i < 4; i++ {
		got := collect(t, client.Subscribe(context.Background(), "user@example.com"))
		if last := got[len(got)-1]; last.Status != waitlist.StatusError {
			t.Fatalf("expected error on call %d, got %+v", i, last)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected breaker to stop requests after 2 failures, got %d hits", n)
	}
}

func TestRefusalsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(string) (int, string) {
		return http.StatusOK, `{"result":"error","msg":"Member Exists"}`
	})
	client := newTestClient(t, srv, 2)

	for i := 0; i < 4; i++ {
		collect(t, client.Subscribe(context.Background(), "user@example.com"))
	}
	if n := hits.Load(); n != 4 {
		t.Fatalf("expected every refusal to reach the server, got %d hits", n)
	}
}

func TestCancelledContextReportsError(t *testing.T) {
	var hits atomic.Int32
	srv := newMailchimpServer(t, &hits, func(string) (int, string) {
		return http.StatusOK, `{"result":"success","msg":"ok"}`
	})
	client := newTestClient(t, srv, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := collect(t, client.Subscribe(ctx, "user@example.com"))
	if last := got[len(got)-1]; last.Status != waitlist.StatusError {
		t.Fatalf("expected error for cancelled context, got %+v", last)
	}
}

func TestCallbackParameterIsUnique(t *testing.T) {
	var hits atomic.Int32
	seen := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cb := r.URL.Query().Get("c")
		seen <- cb
		fmt.Fprintf(w, `%s({"result":"success","msg":"ok"})`, cb)
	}))
	defer srv.Close()
	client := newTestClient(t, srv, 5)

	collect(t, client.Subscribe(context.Background(), "a@example.com"))
	collect(t, client.Subscribe(context.Background(), "b@example.com"))
	first, second := <-seen, <-seen
	if first == second || !strings.HasPrefix(first, "boostalk_cb_") {
		t.Fatalf("expected distinct callback names, got %q and %q", first, second)
	}
}
