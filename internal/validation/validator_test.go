// GoodMap - Map-Based Community Bulletin Board
// Copyright 2026 FirstBright
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/FirstBright/goodmap

package validation

import (
	"strings"
	"testing"
)

type markerRequest struct {
	Name      string   `validate:"required,min=1,max=100"`
	Latitude  float64  `validate:"latitude"`
	Longitude float64  `validate:"longitude"`
	Tags      []string `validate:"omitempty,dive,markertag"`
}

func TestValidateStructPasses(t *testing.T) {
	t.Parallel()

	req := markerRequest{
		Name:      "Han River Cafe",
		Latitude:  37.5326,
		Longitude: 127.0246,
		Tags:      []string{"cafe", "tourism_view"},
	}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     markerRequest
		wantTag string
	}{
		{
			name:    "missing name",
			req:     markerRequest{Latitude: 10, Longitude: 10},
			wantTag: "required",
		},
		{
			name:    "latitude out of range",
			req:     markerRequest{Name: "x", Latitude: 91, Longitude: 0},
			wantTag: "latitude",
		},
		{
			name:    "longitude out of range",
			req:     markerRequest{Name: "x", Latitude: 0, Longitude: -181},
			wantTag: "longitude",
		},
		{
			name:    "unknown tag",
			req:     markerRequest{Name: "x", Latitude: 0, Longitude: 0, Tags: []string{"museum"}},
			wantTag: "markertag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			found := false
			for _, fe := range err.Errors() {
				if fe.Tag() == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a %q failure, got: %v", tt.wantTag, err)
			}
		})
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	t.Parallel()

	req := markerRequest{Name: "", Latitude: 0, Longitude: 0}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "required") {
		t.Errorf("message %q should mention required", apiErr.Message)
	}
	if apiErr.Details["field"] != "Name" {
		t.Errorf("details field = %v, want Name", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	t.Parallel()

	req := markerRequest{Name: "", Latitude: 100, Longitude: 200}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) < 2 {
		t.Fatalf("expected multiple field errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-field error should include fields detail")
	}
}
