package cli

import (
	"errors"
	"os"

	"github.com/digitorus/efirma-pdfsign/common"
	"github.com/digitorus/efirma-pdfsign/extract"
	"github.com/digitorus/efirma-pdfsign/verify"
)

// errNotValid is returned after the report of a document whose
// signatures do not match.
var errNotValid = errors.New("document has no matching signature")

func validateCommand(a *app, args []string) error {
	fs, configPath := a.flagSet("validate", "[options] <input.pdf>",
		"Recompute the digest of every signature and compare it to the signed messageDigest",
		"contrato-firmado.pdf",
		"-format yaml contrato-firmado.pdf",
	)
	format := formatFlag(fs)

	if err := a.parse(fs, args, 1); err != nil {
		return err
	}
	if _, err := a.loadConfig(*configPath); err != nil {
		return err
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	report, err := verify.NewValidator(a.log).Validate(data)
	if err != nil {
		return err
	}
	if err := a.output(*format, report); err != nil {
		return err
	}
	if !report.Valid {
		return errNotValid
	}
	return nil
}

// signatureSummary describes a signature without checking it.
type signatureSummary struct {
	Field        string  `json:"field" yaml:"field"`
	Name         string  `json:"name" yaml:"name"`
	Reason       string  `json:"reason" yaml:"reason"`
	Location     string  `json:"location" yaml:"location"`
	ContactInfo  string  `json:"contact_info,omitempty" yaml:"contact_info,omitempty"`
	SigningTime  string  `json:"signing_time,omitempty" yaml:"signing_time,omitempty"`
	SubFilter    string  `json:"sub_filter" yaml:"sub_filter"`
	ByteRange    []int64 `json:"byte_range" yaml:"byte_range"`
	Certificates int     `json:"certificates" yaml:"certificates"`
	Error        string  `json:"error,omitempty" yaml:"error,omitempty"`
}

type infoOutput struct {
	Document   common.DocumentInfo `json:"document" yaml:"document"`
	Signatures []signatureSummary  `json:"signatures" yaml:"signatures"`
}

func infoCommand(a *app, args []string) error {
	fs, configPath := a.flagSet("info", "[options] <input.pdf>",
		"Show the document metadata and the signature fields of a PDF file",
		"contrato-firmado.pdf",
	)
	format := formatFlag(fs)

	if err := a.parse(fs, args, 1); err != nil {
		return err
	}
	if _, err := a.loadConfig(*configPath); err != nil {
		return err
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	out := infoOutput{Signatures: []signatureSummary{}}
	out.Document, err = verify.Info(data)
	if err != nil {
		return err
	}

	for sig, err := range extract.Signatures(data) {
		if err != nil {
			return err
		}
		summary := signatureSummary{
			Field:       sig.Field,
			Name:        sig.Name(),
			Reason:      sig.Reason(),
			Location:    sig.Location(),
			ContactInfo: sig.ContactInfo(),
			SigningTime: sig.SigningTime(),
			SubFilter:   sig.SubFilter(),
			ByteRange:   sig.ByteRange(),
		}
		if certs, err := sig.Certificates(); err != nil {
			summary.Error = err.Error()
		} else {
			summary.Certificates = len(certs)
		}
		out.Signatures = append(out.Signatures, summary)
	}

	return a.output(*format, out)
}
