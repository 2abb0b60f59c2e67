package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/digitorus/efirma-pdfsign/extract"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func extractCommand(a *app, args []string) error {
	fs, configPath := a.flagSet("extract", "[options] <input.pdf> <directory>",
		"Write every signature as a DER .p7s file and its certificates as PEM",
		"contrato-firmado.pdf firmas/",
	)

	if err := a.parse(fs, args, 2); err != nil {
		return err
	}
	if _, err := a.loadConfig(*configPath); err != nil {
		return err
	}
	input, dir := fs.Arg(0), fs.Arg(1)

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	count := 0
	for sig, err := range extract.Signatures(data) {
		if err != nil {
			return err
		}
		count++

		base := unsafeFileChars.ReplaceAllString(sig.Field, "_")
		if base == "" {
			base = fmt.Sprintf("signature%d", count)
		}

		der, err := sig.DER()
		if err != nil {
			return fmt.Errorf("signature %s: %w", sig.Field, err)
		}
		certs, err := sig.Certificates()
		if err != nil {
			return fmt.Errorf("signature %s: %w", sig.Field, err)
		}

		p7s := filepath.Join(dir, base+".p7s")
		if err := os.WriteFile(p7s, der, 0o644); err != nil {
			return err
		}
		pemFile := filepath.Join(dir, base+".pem")
		if err := os.WriteFile(pemFile, extract.CertificatesPEM(certs), 0o644); err != nil {
			return err
		}

		a.log.Info().
			Str("field", sig.Field).
			Str("signature", p7s).
			Str("certificates", pemFile).
			Int("certificate_count", len(certs)).
			Msg("signature extracted")
		fmt.Fprintln(a.stdout, p7s)
		fmt.Fprintln(a.stdout, pemFile)
	}

	if count == 0 {
		return fmt.Errorf("no signatures found in %s", input)
	}
	return nil
}
