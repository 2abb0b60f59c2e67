package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/digitorus/efirma-pdfsign/certstore"
	"github.com/digitorus/efirma-pdfsign/config"
	"github.com/digitorus/efirma-pdfsign/sign"
)

// keyFlags selects the key material of sign and certinfo.
type keyFlags struct {
	cer, key, pfx, password string
}

func (k *keyFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&k.cer, "cer", "", "e.firma certificate (.cer, DER or PEM)")
	fs.StringVar(&k.key, "key", "", "e.firma private key (.key), encrypted with -password")
	fs.StringVar(&k.pfx, "pfx", "", "PKCS #12 bundle (.pfx, .p12) instead of -cer and -key")
	fs.StringVar(&k.password, "password", "", "Password of the key or bundle (default $EFIRMA_PASSWORD)")
}

var errNoKeyMaterial = errors.New("either -pfx or both -cer and -key are required")

// load reads the certificate and opens a key session.
func (k *keyFlags) load(cfg *config.Config) (*certstore.Certificate, *certstore.KeySession, error) {
	password := k.password
	if password == "" {
		password = cfg.Password
	}

	switch {
	case k.pfx != "" && (k.cer != "" || k.key != ""):
		return nil, nil, errNoKeyMaterial
	case k.pfx != "":
		pfx, err := os.ReadFile(k.pfx)
		if err != nil {
			return nil, nil, err
		}
		return certstore.LoadFromPKCS12(pfx, password)
	case k.cer != "" && k.key != "":
		certData, err := os.ReadFile(k.cer)
		if err != nil {
			return nil, nil, err
		}
		keyData, err := os.ReadFile(k.key)
		if err != nil {
			return nil, nil, err
		}
		return certstore.LoadFromPair(certData, keyData, password)
	default:
		return nil, nil, errNoKeyMaterial
	}
}

// signFlags holds the signature options that override the configuration
// when given.
type signFlags struct {
	reason, location, contact, text string
	level, page, capacity           int
	x, y                            float64
	invisible, noTimestamp, noChain bool
}

func (s *signFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.reason, "reason", sign.DefaultReason, "Reason for signing")
	fs.StringVar(&s.location, "location", sign.DefaultLocation, "Location of the signatory")
	fs.StringVar(&s.contact, "contact", "", "Contact information for signatory")
	fs.StringVar(&s.text, "text", "", "Text of the visible signature, lines separated by \\n")
	fs.IntVar(&s.level, "level", 0, "Certification level: 0 approval, 1 no changes, 2 form filling, 3 form filling and annotations")
	fs.IntVar(&s.page, "page", 1, "Page of the signature widget, 0 for the last page")
	fs.IntVar(&s.capacity, "capacity", 0, "Hex characters reserved for the signature, 0 to derive from the certificate")
	fs.Float64Var(&s.x, "x", sign.DefaultX, "Left edge of the visible signature, in points")
	fs.Float64Var(&s.y, "y", sign.DefaultY, "Bottom edge of the visible signature, in points")
	fs.BoolVar(&s.invisible, "invisible", false, "Do not draw the signature on the page")
	fs.BoolVar(&s.noTimestamp, "no-timestamp", false, "Leave the signing time out of /M and the visible text")
	fs.BoolVar(&s.noChain, "no-chain", false, "Embed only the signer certificate")
}

// apply copies the flags given on the command line over opts.
func (s *signFlags) apply(fs *flag.FlagSet, opts *sign.Options) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "reason":
			opts.Reason = s.reason
		case "location":
			opts.Location = s.location
		case "contact":
			opts.ContactInfo = s.contact
		case "text":
			opts.SignatureText = unescapeLines(s.text)
		case "level":
			opts.CertificationLevel = sign.CertificationLevel(s.level)
		case "page":
			opts.Page = s.page
		case "capacity":
			opts.Capacity = s.capacity
		case "x":
			opts.X = s.x
		case "y":
			opts.Y = s.y
		case "invisible":
			opts.Visible = !s.invisible
		case "no-timestamp":
			opts.IncludeTimestamp = !s.noTimestamp
		case "no-chain":
			opts.EmbedChain = !s.noChain
		}
	})
}

func unescapeLines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'n' {
			out = append(out, '\n')
			i++
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func signCommand(a *app, args []string) error {
	fs, configPath := a.flagSet("sign", "[options] <input.pdf> <output.pdf>",
		"Sign a PDF file with a detached PKCS #7 signature",
		`-cer firma.cer -key firma.key -password secreto contrato.pdf contrato-firmado.pdf`,
		`-pfx firma.pfx -reason "Aprobación" -page 0 contrato.pdf contrato-firmado.pdf`,
		`-pfx firma.pfx -level 1 -invisible contrato.pdf contrato-certificado.pdf`,
	)
	var keys keyFlags
	keys.register(fs)
	var sf signFlags
	sf.register(fs)
	format := formatFlag(fs)

	if err := a.parse(fs, args, 2); err != nil {
		return err
	}
	input, output := fs.Arg(0), fs.Arg(1)

	cfg, err := a.loadConfig(*configPath)
	if err != nil {
		return err
	}
	opts := cfg.SignOptions()
	sf.apply(fs, &opts)
	opts.Logger = a.log

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	cert, session, err := keys.load(cfg)
	if err != nil {
		return err
	}
	a.log.Info().
		Str("signer", cert.CommonName()).
		Str("serial", cert.SerialHex()).
		Str("source", string(cert.Source)).
		Msg("certificate loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	signed, result, err := sign.SignPDF(ctx, data, cert, session, opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, signed, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	a.log.Info().Str("file", output).Msg("Signed PDF written to " + output)

	return a.output(*format, result)
}
