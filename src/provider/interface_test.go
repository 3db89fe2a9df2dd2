package provider

import (
	"errors"
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantOrg     string
		wantProject string
		wantBuild   int
		wantErr     bool
	}{
		{
			name:        "dev.azure.com URL",
			url:         "https://dev.azure.com/contoso/web-app/_build/results?buildId=123&view=results",
			wantOrg:     "contoso",
			wantProject: "web-app",
			wantBuild:   123,
		},
		{
			name:        "visualstudio.com URL",
			url:         "https://contoso.visualstudio.com/web-app/_build/results?buildId=456",
			wantOrg:     "contoso",
			wantProject: "web-app",
			wantBuild:   456,
		},
		{
			name:        "escaped project name",
			url:         "https://dev.azure.com/contoso/My%20Project/_build/results?buildId=7",
			wantOrg:     "contoso",
			wantProject: "My Project",
			wantBuild:   7,
		},
		{
			name:    "missing buildId",
			url:     "https://dev.azure.com/contoso/web-app/_build/results",
			wantErr: true,
		},
		{
			name:    "non-numeric buildId",
			url:     "https://dev.azure.com/contoso/web-app/_build/results?buildId=abc",
			wantErr: true,
		},
		{
			name:    "other host",
			url:     "https://github.com/owner/repo/actions/runs/456",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("errors.Is(err, ErrInvalidURL) = false for %v", err)
				}
				return
			}
			if ref.Organization != tt.wantOrg {
				t.Errorf("Organization = %q, want %q", ref.Organization, tt.wantOrg)
			}
			if ref.Project != tt.wantProject {
				t.Errorf("Project = %q, want %q", ref.Project, tt.wantProject)
			}
			if ref.BuildID != tt.wantBuild {
				t.Errorf("BuildID = %d, want %d", ref.BuildID, tt.wantBuild)
			}
		})
	}
}

func TestBranch_ShortName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"refs/heads/main", "main"},
		{"refs/heads/feature/x", "feature/x"},
		{"main", "main"},
		{"refs/heads/", "refs/heads/"},
	}
	for _, tt := range tests {
		if got := (Branch{Name: tt.name}).ShortName(); got != tt.want {
			t.Errorf("ShortName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
