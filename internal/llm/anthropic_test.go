package llm

import "testing"

func TestSplitDataURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		mediaType string
		data      string
		wantErr   bool
	}{
		{
			name:      "png",
			url:       "data:image/png;base64,iVBORw0KGgo=",
			mediaType: "image/png",
			data:      "iVBORw0KGgo=",
		},
		{
			name:      "jpeg",
			url:       "data:image/jpeg;base64,/9j/4AAQ",
			mediaType: "image/jpeg",
			data:      "/9j/4AAQ",
		},
		{
			name:    "not a data url",
			url:     "https://example.com/cat.png",
			wantErr: true,
		},
		{
			name:    "missing comma",
			url:     "data:image/png;base64",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, data, err := splitDataURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mediaType != tt.mediaType {
				t.Errorf("mediaType = %q, want %q", mediaType, tt.mediaType)
			}
			if data != tt.data {
				t.Errorf("data = %q, want %q", data, tt.data)
			}
		})
	}
}
