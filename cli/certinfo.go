package cli

import (
	"os"

	"github.com/digitorus/efirma-pdfsign/certstore"
)

func certinfoCommand(a *app, args []string) error {
	fs, configPath := a.flagSet("certinfo", "[options]",
		"Show the holder and validity of a certificate. With -key or -pfx the key is decrypted and checked against the certificate.",
		"-cer firma.cer",
		"-cer firma.cer -key firma.key -password secreto",
		"-pfx firma.pfx -format yaml",
	)
	var keys keyFlags
	keys.register(fs)
	format := formatFlag(fs)

	if err := a.parse(fs, args, 0); err != nil {
		return err
	}
	cfg, err := a.loadConfig(*configPath)
	if err != nil {
		return err
	}

	var cert *certstore.Certificate
	if keys.cer != "" && keys.key == "" && keys.pfx == "" {
		data, err := os.ReadFile(keys.cer)
		if err != nil {
			return err
		}
		if cert, err = certstore.ParseCertificate(data); err != nil {
			return err
		}
	} else {
		var session *certstore.KeySession
		cert, session, err = keys.load(cfg)
		if err != nil {
			return err
		}
		_ = session.Close()
	}

	summary := certstore.Summarize(cert, a.now())
	a.log.Debug().
		Str("serial", summary.SerialNumber).
		Bool("valid", summary.Valid).
		Msg("certificate summarized")
	return a.output(*format, summary)
}
