package main

import (
	"fmt"
	"os"

	. "github.com/novaprotocol/nova-go"
	"github.com/novaprotocol/nova-go/rpcclient"
	"github.com/pkg/errors"
)

var log = Log()

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = cmdKeygen(os.Args[2:])
	case "addr":
		err = cmdAddr(os.Args[2:])
	case "mnemonic":
		err = cmdMnemonic(os.Args[2:])
	case "split":
		err = cmdSplit(os.Args[2:])
	case "recover":
		err = cmdRecover(os.Args[2:])
	case "status":
		err = cmdStatus(os.Args[2:])
	case "balance":
		err = cmdBalance(os.Args[2:])
	case "send":
		err = cmdSend(os.Args[2:])
	case "watch":
		err = cmdWatch(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Printf("unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}
}

func usage() {
	fmt.Print(`usage: nova COMMAND [flags]

Key commands (offline):
  keygen     Generate a new keypair, optionally sealed to a keystore file
  addr       Derive the address for a public key, or decode an address
  mnemonic   Generate a recovery phrase and its keypair
  split      Split a seed into recovery shares
  recover    Recombine recovery shares into a seed

Node commands:
  status     Show node status
  balance    Show an account balance
  send       Build, sign and submit a transfer
  watch      Follow a transaction until it confirms

Run 'nova COMMAND -h' for the flags of each command.
`)
}

func nodeClient(nodeURL string) (client *rpcclient.Client, err error) {
	if nodeURL == "" {
		nodeURL = DevNetParams.NodeURL
	}
	return rpcclient.New(nodeURL)
}

// passphraseOrEnv resolves the keystore passphrase from the flag or the
// NOVA_PASSPHRASE environment variable.
func passphraseOrEnv(flagValue string) (passphrase string, err error) {
	passphrase = flagValue
	if passphrase == "" {
		passphrase = os.Getenv("NOVA_PASSPHRASE")
	}
	if passphrase == "" {
		err = errors.New("passphrase required: pass -passphrase or set NOVA_PASSPHRASE")
	}
	return
}

// loadWallet builds a signing wallet from either a keystore file or a raw
// seed, whichever the caller provided.
func loadWallet(keystorePath, seedHex, passphrase string) (w *Wallet, err error) {
	switch {
	case keystorePath != "":
		file, err2 := ReadKeystore(keystorePath)
		if err2 != nil {
			err = err2
			return
		}
		pass, err2 := passphraseOrEnv(passphrase)
		if err2 != nil {
			err = err2
			return
		}
		return WalletFromKeystore(file, pass)

	case seedHex != "":
		return WalletFromHex(seedHex)

	default:
		err = errors.New("signing key required: pass -keystore or -seed")
		return
	}
}
