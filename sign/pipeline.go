package sign

import (
	"context"

	"github.com/digitorus/efirma-pdfsign/certstore"
)

// SignPDF signs data with the certificate and key of session and returns the
// signed document. The session is closed before SignPDF returns, whatever
// the outcome. On error no bytes are returned.
func SignPDF(ctx context.Context, data []byte, cert *certstore.Certificate, session *certstore.KeySession, opts Options) ([]byte, *Result, error) {
	defer func() {
		_ = session.Close()
	}()

	if cert == nil || cert.X509 == nil {
		return nil, nil, errCertificateRequired
	}
	if err := checkSigner(session.Signer(), cert.X509); err != nil {
		return nil, nil, err
	}

	sc, err := NewSignContext(data, cert, opts)
	if err != nil {
		return nil, nil, err
	}
	if _, err := sc.InsertPlaceholder(); err != nil {
		return nil, nil, err
	}
	if err := sc.updateByteRange(); err != nil {
		return nil, nil, err
	}

	spans, err := sc.signedSpans()
	if err != nil {
		return nil, nil, err
	}
	hash := ContentDigest(spans)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	der, err := BuildSignedData(spans, cert.X509, sc.chain(), session.Signer(), sc.SignDate)
	if err != nil {
		return nil, nil, err
	}

	if err := sc.replaceSignature(der); err != nil {
		return nil, nil, err
	}

	result := sc.result(hash, der)
	sc.log.Debug().
		Str("signer", cert.CommonName()).
		Str("hash", result.Hash).
		Msg("document signed")

	return sc.OutputBuffer.Buff.Bytes(), result, nil
}

// SignWithPair loads an e.firma certificate and encrypted key and signs data.
func SignWithPair(ctx context.Context, data, certDER, encryptedKey []byte, password string, opts Options) ([]byte, *Result, error) {
	cert, session, err := certstore.LoadFromPair(certDER, encryptedKey, password)
	if err != nil {
		return nil, nil, err
	}
	return SignPDF(ctx, data, cert, session, opts)
}

// SignWithPKCS12 loads a PKCS #12 bundle and signs data.
func SignWithPKCS12(ctx context.Context, data, pfx []byte, password string, opts Options) ([]byte, *Result, error) {
	cert, session, err := certstore.LoadFromPKCS12(pfx, password)
	if err != nil {
		return nil, nil, err
	}
	return SignPDF(ctx, data, cert, session, opts)
}
