package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	pkgAuth "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/pkg/auth"
)

// hashToken reads an operator token from in and prints its bcrypt hash for OPERATOR_TOKEN_HASH.
func hashToken(in io.Reader, out, errOut io.Writer) int {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		fmt.Fprintf(errOut, "read token: %v\n", err)
		return 1
	}
	token := strings.TrimSpace(line)
	if token == "" {
		fmt.Fprintln(errOut, "empty token")
		return 1
	}
	hash, err := pkgAuth.NewBcryptHasher(0).Hash(token)
	if err != nil {
		fmt.Fprintf(errOut, "hash token: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, hash)
	return 0
}
