// Package model holds the view types and static copy rendered by the landing page.
package model

// NavLink is a header or footer navigation entry.
type NavLink struct {
	Label string
	Href  string
}

// Stat is one headline number in the hero.
type Stat struct {
	Value string
	Label string
}

// Feature is one card in the feature grid. Icon names a CSS icon class.
type Feature struct {
	Icon        string
	Title       string
	Description string
}

// Hero is the copy above the fold.
type Hero struct {
	Badge       string
	Headline    string
	Description string
	CTALabel    string
	CTAHref     string
	Stats       []Stat
}

// Section is a heading plus supporting line.
type Section struct {
	Heading    string
	Subheading string
}

// LandingContent is everything on the page that is not form or countdown state.
type LandingContent struct {
	Nav      []NavLink
	NavCTA   NavLink
	Hero     Hero
	Features Section
	Cards    []Feature
	Waitlist Section
	Tagline  string
}

// DefaultContent returns the launch copy for Boostalk.
func DefaultContent() LandingContent {
	return LandingContent{
		Nav: []NavLink{
			{Label: "Features", Href: "#features"},
			{Label: "Join Waitlist", Href: "#waitlist"},
			{Label: "About", Href: "#about"},
		},
		NavCTA: NavLink{Label: "Get Early Access", Href: "#waitlist"},
		Hero: Hero{
			Badge:       "Coming Soon",
			Headline:    "Connect, Share, Inspire",
			Description: "The next generation social media platform designed for authentic connections. Share your moments, discover new perspectives, and build meaningful relationships.",
			CTALabel:    "Join the Waitlist",
			CTAHref:     "#waitlist",
			Stats: []Stat{
				{Value: "10K+", Label: "Beta Testers"},
				{Value: "50K+", Label: "Waitlist"},
				{Value: "4.9★", Label: "Beta Rating"},
			},
		},
		Features: Section{
			Heading:    "Why Boostalk is Different",
			Subheading: "We're building the social platform you've always wanted, with features that matter most.",
		},
		Cards: []Feature{
			{Icon: "users", Title: "Authentic Connections", Description: "Connect with people who share your interests and values using circles. Our algorithm prioritizes meaningful interactions over engagement metrics."},
			{Icon: "shield", Title: "Privacy First", Description: "Your data belongs to you. We use end-to-end encryption and give you complete control over your privacy settings."},
			{Icon: "globe", Title: "Global Reach", Description: "Expand your network beyond borders. Join global communities, share stories, and be inspired by diverse perspectives."},
			{Icon: "zap", Title: "Fast & Lightweight", Description: "Built for speed. Enjoy a snappy interface, lightning-fast feeds, and minimal distractions."},
			{Icon: "camera", Title: "Visual Storytelling", Description: "Share photos and videos with beautiful filters and creative tools. Tell your story your way."},
			{Icon: "check", Title: "Verified Safety", Description: "We actively monitor and verify accounts to ensure your experience is safe and positive."},
		},
		Waitlist: Section{
			Heading:    "Be the First to Experience the Wave",
			Subheading: "Join our waitlist and get exclusive early access to Boostalk before anyone else.",
		},
		Tagline: "Built for authenticity. Powered by community. Privacy by design.",
	}
}
