package main

import (
	"fmt"
	"os"

	"github.com/creditohabitacao/leads-api/internal/auth"
)

// Gera um hash Argon2id para semear a coluna password_hash das gestoras.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: hashpass <palavra-passe>")
		os.Exit(1)
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro ao gerar hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
