package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xsdvalidate "github.com/terminalstatic/go-xsd-validate"
)

// MasterSchemaFile is the name of the assembled schema inside the schema dir.
const MasterSchemaFile = "master_schema.xsd"

// masterSchemaXML joins the three standard components: the envelope
// (head.003), the business application header (head.001) and the domain
// order-book report (auth.anonym.113). The referenced component files are
// supplied externally into the same directory.
const masterSchemaXML = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema
    xmlns:xs="http://www.w3.org/2001/XMLSchema"
    targetNamespace="urn:iso:std:iso:20022:tech:xsd:head.003.001.01"
    xmlns="urn:iso:std:iso:20022:tech:xsd:head.003.001.01"
    elementFormDefault="qualified">
<xs:import
    namespace="urn:iso:std:iso:20022:tech:xsd:head.001.001.01"
    schemaLocation="head.001.001.01_ESMAUG_1.0.0.xsd"/>
<xs:import
    namespace="urn:accenture:auth.anonym.113.001.01"
    schemaLocation="auth.anonym.113.001.01.xsd"/>
<xs:include schemaLocation="head.003.001.01.xsd"/>
</xs:schema>
`

// EnsureMasterSchema writes the master schema into dir if it is not already
// present and returns its path.
func EnsureMasterSchema(dir string) (string, error) {
	path := filepath.Join(dir, MasterSchemaFile)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create schema dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(masterSchemaXML), 0o644); err != nil {
		return "", fmt.Errorf("write master schema: %w", err)
	}
	return path, nil
}

// Validator checks a serialized document against the schema contract.
type Validator interface {
	// Validate returns nil for a conforming document, a *SchemaError with
	// enumerated diagnostics for a non-conforming one, and any other error
	// for validator failures.
	Validate(doc []byte) error
}

// SchemaError reports a document that failed schema validation.
type SchemaError struct {
	Diagnostics []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("document failed schema validation: %s", strings.Join(e.Diagnostics, "; "))
}

var xsdInitOnce sync.Once

// XSDValidator validates against the assembled master schema via libxml2.
type XSDValidator struct {
	handler *xsdvalidate.XsdHandler
}

// NewXSDValidator parses the master schema at path. The referenced component
// schemas must be resolvable relative to it.
func NewXSDValidator(path string) (*XSDValidator, error) {
	var initErr error
	xsdInitOnce.Do(func() { initErr = xsdvalidate.Init() })
	if initErr != nil {
		return nil, fmt.Errorf("init xsd engine: %w", initErr)
	}
	handler, err := xsdvalidate.NewXsdHandlerUrl(path, xsdvalidate.ParsErrDefault)
	if err != nil {
		return nil, fmt.Errorf("parse master schema %s: %w", path, err)
	}
	return &XSDValidator{handler: handler}, nil
}

// Validate checks one serialized document.
func (v *XSDValidator) Validate(doc []byte) error {
	err := v.handler.ValidateMem(doc, xsdvalidate.ValidErrDefault)
	if err == nil {
		return nil
	}
	if ve, ok := err.(xsdvalidate.ValidationError); ok {
		se := &SchemaError{}
		for _, e := range ve.Errors {
			se.Diagnostics = append(se.Diagnostics, fmt.Sprintf("line %d: %s", e.Line, strings.TrimSpace(e.Message)))
		}
		return se
	}
	return fmt.Errorf("validate document: %w", err)
}

// Free releases the underlying libxml2 handler.
func (v *XSDValidator) Free() {
	v.handler.Free()
}
