package domain

import "testing"

func TestMetadataValidate(t *testing.T) {
	cases := []struct {
		name string
		md   ExtractionMetadata
		ok   bool
	}{
		{"structured complete", ExtractionMetadata{Method: MethodStructured, Status: StatusComplete, Confidence: 1.0}, true},
		{"pattern partial", ExtractionMetadata{Method: MethodPattern, Status: StatusPartial, Confidence: 0.4}, true},
		{"page fallback", ExtractionMetadata{Method: MethodPage, Status: StatusPartial, Confidence: 0.15, Fallback: true}, true},
		{"failed shape", FailedMetadata("no content"), true},
		{"failed with confidence", ExtractionMetadata{Method: MethodFailed, Status: StatusEmpty, Confidence: 0.2}, false},
		{"failed but complete", ExtractionMetadata{Method: MethodFailed, Status: StatusComplete, Confidence: 0}, false},
		{"empty without failed", ExtractionMetadata{Method: MethodPattern, Status: StatusEmpty, Confidence: 0}, false},
		{"zero confidence success", ExtractionMetadata{Method: MethodStructured, Status: StatusComplete, Confidence: 0}, false},
		{"confidence above one", ExtractionMetadata{Method: MethodStructured, Status: StatusComplete, Confidence: 1.2}, false},
		{"unknown method", ExtractionMetadata{Method: "guess", Status: StatusComplete, Confidence: 0.5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.md.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}
