package genclient

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRequestPrompt(t *testing.T) {
	req := Request{
		BusinessType: "coffee shop",
		Tone:         "upbeat",
		Avoid:        "discounts",
	}
	p := req.prompt()
	if !strings.Contains(p, "Business type: coffee shop") {
		t.Errorf("missing business type in %q", p)
	}
	if !strings.Contains(p, "Avoid: discounts") {
		t.Errorf("missing avoid terms in %q", p)
	}
	if strings.Contains(p, "Audience:") {
		t.Errorf("empty field rendered in %q", p)
	}
}

func TestRequestPreferences(t *testing.T) {
	req := Request{BusinessType: "bakery", Goal: "promote opening"}
	prefs := req.Preferences()
	if prefs["business_type"] != "bakery" || prefs["goal"] != "promote opening" {
		t.Errorf("preferences = %v", prefs)
	}
	if len(prefs) != 6 {
		t.Errorf("preference keys = %d, want 6", len(prefs))
	}
}

func TestMockGenerate(t *testing.T) {
	out, err := Mock{}.Generate(context.Background(), Request{BusinessType: "bakery"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bakery") {
		t.Errorf("mock output = %q", out)
	}

	wantErr := errors.New("backend down")
	if _, err := (Mock{Err: wantErr}).Generate(context.Background(), Request{}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
}

func TestNewOpenAIValidation(t *testing.T) {
	if _, err := NewOpenAI(Settings{Model: "gpt-4o-mini"}); err == nil {
		t.Error("missing api key should fail")
	}
	if _, err := NewOpenAI(Settings{APIKey: "k"}); err == nil {
		t.Error("missing model should fail")
	}
	if _, err := NewOpenAI(Settings{APIKey: "k", Model: "gpt-4o-mini"}); err != nil {
		t.Errorf("valid settings failed: %v", err)
	}
}
