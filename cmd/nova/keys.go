package main

import (
	"encoding/hex"
	"flag"
	"fmt"

	. "github.com/novaprotocol/nova-go"
	"github.com/pkg/errors"
)

func cmdKeygen(args []string) (err error) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	keystorePath := fs.String("keystore", "", "Seal the key under a passphrase and write it to this file")
	passphrase := fs.String("passphrase", "", "Keystore passphrase (or set NOVA_PASSPHRASE)")
	_ = fs.Parse(args)

	kp, err := GenerateKeyPair()
	if err != nil {
		return
	}

	address, err := kp.AddressString()
	if err != nil {
		return
	}

	fmt.Println("")
	fmt.Println("generated new nova keypair:")
	fmt.Println("")
	fmt.Printf("key type:  ed25519\n")
	fmt.Printf("seed:      %x\n", kp.Seed())
	fmt.Printf("public:    %s\n", kp.PublicKeyHex())
	fmt.Printf("address:   %s\n", address)

	if *keystorePath != "" {
		pass, err2 := passphraseOrEnv(*passphrase)
		if err2 != nil {
			err = err2
			return
		}

		file, err2 := SealKeyPair(kp, pass)
		if err2 != nil {
			err = err2
			return
		}

		if err = file.Write(*keystorePath); err != nil {
			return
		}

		fmt.Printf("keystore:  %s\n", *keystorePath)
	}

	kp.Zero()

	return
}

func cmdAddr(args []string) (err error) {
	fs := flag.NewFlagSet("addr", flag.ExitOnError)
	pubHex := fs.String("pubkey", "", "Derive the address for this public key (hex)")
	_ = fs.Parse(args)

	if *pubHex != "" {
		pub, err2 := hex.DecodeString(*pubHex)
		if err2 != nil {
			err = errors.Wrap(err2, "public key is not valid hex")
			return
		}

		encoded, err2 := DeriveAddress(pub)
		if err2 != nil {
			err = err2
			return
		}

		fmt.Printf("public:   %s\n", *pubHex)
		fmt.Printf("address:  %s\n", encoded)
		return
	}

	if fs.NArg() != 1 {
		err = errors.New("usage: nova addr [-pubkey HEX] | nova addr ADDRESS")
		return
	}

	address := fs.Arg(0)
	pub, err := ParseAddress(address)
	if err != nil {
		return
	}

	fmt.Printf("address:  %s\n", address)
	fmt.Printf("public:   %x\n", pub)

	return
}

func cmdMnemonic(args []string) (err error) {
	fs := flag.NewFlagSet("mnemonic", flag.ExitOnError)
	passphrase := fs.String("passphrase", "", "Optional extra passphrase mixed into the derived seed")
	_ = fs.Parse(args)

	mnemonic, err := NewMnemonic()
	if err != nil {
		return
	}

	w, err := WalletFromMnemonic(mnemonic, *passphrase)
	if err != nil {
		return
	}

	fmt.Println("")
	fmt.Println("generated new recovery phrase:")
	fmt.Println("")
	fmt.Printf("mnemonic:  %s\n", mnemonic)
	fmt.Printf("public:    %s\n", w.PublicKeyHex())
	fmt.Printf("address:   %s\n", w.Address())

	w.Zero()

	return
}

func cmdSplit(args []string) (err error) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	seedHex := fs.String("seed", "", "The seed to split (hex)")
	threshold := fs.Int("threshold", 2, "Shares required to recover the seed")
	total := fs.Int("shares", 3, "Total shares to create")
	_ = fs.Parse(args)

	if *seedHex == "" {
		err = errors.New("usage: nova split -seed HEX [-threshold N] [-shares M]")
		return
	}

	seed, err := hex.DecodeString(*seedHex)
	if err != nil {
		err = errors.Wrap(err, "seed is not valid hex")
		return
	}

	shares, err := SplitSeed(seed, *threshold, *total)
	if err != nil {
		return
	}

	fmt.Println("")
	fmt.Printf("split seed into %d shares, any %d recover it:\n", *total, *threshold)
	fmt.Println("")

	for _, share := range shares {
		encoded, err2 := share.MarshalBinary()
		if err2 != nil {
			err = err2
			return
		}
		fmt.Printf("share %d:  %x\n", share.Index, encoded)
	}

	return
}

func cmdRecover(args []string) (err error) {
	fs := flag.NewFlagSet("recover", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 2 {
		err = errors.New("usage: nova recover SHARE SHARE [SHARE...]")
		return
	}

	shares := make([]Share, fs.NArg())
	for i, arg := range fs.Args() {
		data, err2 := hex.DecodeString(arg)
		if err2 != nil {
			err = errors.Wrapf(err2, "share %d is not valid hex", i+1)
			return
		}
		if err = shares[i].UnmarshalBinary(data); err != nil {
			return
		}
	}

	seed, err := RecoverSeed(shares)
	if err != nil {
		return
	}

	w, err := WalletFromSeed(seed)
	if err != nil {
		return
	}

	fmt.Println("")
	fmt.Println("recovered seed:")
	fmt.Println("")
	fmt.Printf("seed:     %x\n", seed)
	fmt.Printf("public:   %s\n", w.PublicKeyHex())
	fmt.Printf("address:  %s\n", w.Address())

	w.Zero()

	return
}
