package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// keygen generates a fresh signer wallet plus a random API key for the read
// surface, and can merge them into a YAML config file in place.
func main() {
	write := flag.String("write", "", "merge the generated credentials into this YAML config file")
	flag.Parse()

	key, err := crypto.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}
	privateKey := hex.EncodeToString(crypto.FromECDSA(key))
	signerAddress := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())

	apiKey, err := randomToken(32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate api key: %v\n", err)
		os.Exit(1)
	}
	webhookSecret, err := randomToken(24)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate webhook secret: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("signer address:", signerAddress)
	fmt.Println("private key:   ", privateKey)
	fmt.Println("api key:       ", apiKey)
	fmt.Println("webhook secret:", webhookSecret)
	fmt.Println()
	fmt.Println("Register the signer address as an API wallet for your main account")
	fmt.Println("on the exchange before sending orders with it.")

	if *write == "" {
		return
	}
	if err := mergeIntoConfig(*write, signerAddress, privateKey, apiKey, webhookSecret); err != nil {
		fmt.Fprintf(os.Stderr, "write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\ncredentials written to", *write)
}

func mergeIntoConfig(path, signerAddress, privateKey, apiKey, webhookSecret string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return errors.Wrap(err, "read existing config")
			}
		}
	}

	v.Set("aster.signer_address", signerAddress)
	v.Set("aster.private_key", privateKey)
	v.Set("api_key", apiKey)
	v.Set("webhook_secret", webhookSecret)

	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
