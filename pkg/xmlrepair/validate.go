// Package xmlrepair checks structural well-formedness of archive XML
// documents and applies bounded, rule-based repair for the corruption
// classes the archive is known to produce. Repair only restores syntax;
// it never invents content.
package xmlrepair

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Reason classifies why a document failed validation.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonEmpty          Reason = "empty document"
	ReasonNoDeclaration  Reason = "missing xml declaration"
	ReasonNoRoot         Reason = "no root element"
	ReasonUnbalancedTags Reason = "unclosed or mismatched tags"
	ReasonBadCharData    Reason = "unescaped reserved characters"
	ReasonSyntax         Reason = "syntax error"
)

// InvalidError reports a failed validation with its classified reason.
type InvalidError struct {
	Reason Reason
	Err    error
}

func (e *InvalidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid document (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid document (%s)", e.Reason)
}

func (e *InvalidError) Unwrap() error { return e.Err }

// ReasonOf extracts the classified reason from a validation error,
// ReasonNone if err is nil or not an InvalidError.
func ReasonOf(err error) Reason {
	var ie *InvalidError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ReasonNone
}

// Validate checks that b is a well-formed XML document with a single
// root element. It returns nil for valid documents and an *InvalidError
// with a classified reason otherwise.
func Validate(b []byte) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return &InvalidError{Reason: ReasonEmpty}
	}

	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = true

	depth := 0
	rootsSeen := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &InvalidError{Reason: classifySyntaxError(err), Err: err}
		}
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				rootsSeen++
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	if rootsSeen == 0 {
		return &InvalidError{Reason: ReasonNoRoot}
	}
	if rootsSeen > 1 {
		return &InvalidError{Reason: ReasonNoRoot, Err: fmt.Errorf("%d top-level elements", rootsSeen)}
	}
	return nil
}

// classifySyntaxError maps the decoder's error text onto the bounded
// repair classes. Anything unrecognized stays a plain syntax error.
func classifySyntaxError(err error) Reason {
	msg := err.Error()
	switch {
	case contains(msg, "unexpected EOF"), contains(msg, "unexpected end element"),
		contains(msg, "element <"), contains(msg, "closed by"):
		return ReasonUnbalancedTags
	case contains(msg, "invalid character entity"), contains(msg, "invalid sequence"),
		contains(msg, "expected attribute name"):
		return ReasonBadCharData
	default:
		return ReasonSyntax
	}
}

func contains(s, sub string) bool { return bytes.Contains([]byte(s), []byte(sub)) }

// HasDeclaration reports whether the document starts with an XML
// declaration, used by the cache's cheap revalidation signature.
func HasDeclaration(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(b), []byte("<?xml"))
}

// RootName returns the local name of the document's root element, empty
// when none can be read. This is a cheap structural probe, not a full
// validation.
func RootName(b []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(b))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}
