// Command efirma-pdfsign signs PDF documents with an e.firma or PKCS #12
// certificate and checks the signatures of signed documents.
package main

import "github.com/digitorus/efirma-pdfsign/cli"

func main() {
	cli.Main()
}
