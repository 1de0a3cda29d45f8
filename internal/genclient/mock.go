package genclient

import (
	"context"
	"fmt"
	"strings"
)

// Mock is a placeholder Client for local runs and tests; it never calls an
// external backend.
type Mock struct {
	// Err, when set, is returned from every Generate call.
	Err error
}

var _ Client = (*Mock)(nil)

func (m Mock) Generate(_ context.Context, req Request) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}
	subject := req.BusinessType
	if subject == "" {
		subject = "our business"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Big things are happening at %s!", subject)
	if req.Goal != "" {
		fmt.Fprintf(&sb, " %s.", strings.TrimSuffix(req.Goal, "."))
	}
	fmt.Fprintf(&sb, " (%s tone)", tone)
	return sb.String(), nil
}
