package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	. "github.com/novaprotocol/nova-go"
	"github.com/novaprotocol/nova-go/rpcclient"
	"github.com/pkg/errors"
)

// settingNodeURL is the store key under which send remembers the last
// node it talked to.
const settingNodeURL = "node_url"

func cmdStatus(args []string) (err error) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	nodeURL := fs.String("node", "", "Node base url (default: devnet)")
	_ = fs.Parse(args)

	client, err := nodeClient(*nodeURL)
	if err != nil {
		return
	}

	status, err := client.GetStatus(context.Background())
	if err != nil {
		return
	}

	fmt.Printf("version:       %s\n", status.Version)
	fmt.Printf("network:       %s\n", status.Network)
	fmt.Printf("block height:  %d\n", status.BlockHeight)
	fmt.Printf("peers:         %d\n", status.PeerCount)
	fmt.Printf("synced:        %v\n", status.Synced)
	fmt.Printf("timestamp:     %s\n", status.Timestamp)

	return
}

func cmdBalance(args []string) (err error) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	nodeURL := fs.String("node", "", "Node base url (default: devnet)")
	token := fs.String("token", "", "Token to query (default: the native currency)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		err = errors.New("usage: nova balance [-node URL] [-token ID] ADDRESS")
		return
	}
	address := fs.Arg(0)

	client, err := nodeClient(*nodeURL)
	if err != nil {
		return
	}

	ctx := context.Background()

	balance, err := client.GetBalance(ctx, address, *token)
	if err != nil {
		return
	}

	fmt.Printf("address:  %s\n", address)
	fmt.Printf("balance:  %d\n", balance)

	// Nonce and tx count are only known for accounts the chain has seen.
	if account, err2 := client.GetAccount(ctx, address); err2 == nil {
		fmt.Printf("nonce:    %d\n", account.Nonce)
		fmt.Printf("txs:      %d\n", account.TxCount)
	}

	return
}

func cmdSend(args []string) (err error) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	nodeURL := fs.String("node", "", "Node base url (default: devnet)")
	keystorePath := fs.String("keystore", "", "Path to the sender keystore file")
	seedHex := fs.String("seed", "", "Sender seed (hex), as an alternative to -keystore")
	passphrase := fs.String("passphrase", "", "Keystore passphrase (or set NOVA_PASSPHRASE)")
	to := fs.String("to", "", "Recipient address")
	amount := fs.Uint64("amount", 0, "Amount to send in base units")
	currency := fs.String("currency", NativeCurrency, "Currency to send")
	fee := fs.Uint64("fee", 0, "Fee in base units (default: ask the node)")
	dbPath := fs.String("db", "", "Record the transaction in this sqlite database")
	wait := fs.Bool("wait", false, "Block until the transaction confirms")
	_ = fs.Parse(args)

	if *to == "" || *amount == 0 {
		err = errors.New("usage: nova send -to ADDRESS -amount N [-keystore FILE | -seed HEX]")
		return
	}

	w, err := loadWallet(*keystorePath, *seedHex, *passphrase)
	if err != nil {
		return
	}
	defer w.Zero()

	var store Store
	if *dbPath != "" {
		if store, err = NewSqliteStore(*dbPath); err != nil {
			return
		}
		defer func() {
			if err2 := store.Close(); err == nil {
				err = err2
			}
		}()
	}

	// The node URL sticks to the database: an explicit -node is remembered
	// there, and later sends against the same -db reuse it.
	url := *nodeURL
	if store != nil {
		if url == "" {
			if saved, err2 := store.GetSetting(settingNodeURL); err2 == nil {
				url = saved
			}
		} else if err = store.PutSetting(settingNodeURL, url); err != nil {
			return
		}
	}

	client, err := nodeClient(url)
	if err != nil {
		return
	}

	ctx := context.Background()

	// Next nonce is the confirmed account nonce plus one. A fresh account
	// starts from one.
	nonce := uint64(1)
	if account, err2 := client.GetAccount(ctx, w.Address()); err2 == nil {
		nonce = account.Nonce + 1
	} else if !errors.Is(err2, rpcclient.ErrNotFound) {
		err = err2
		return
	}

	txFee := *fee
	if txFee == 0 {
		if txFee, err = client.EstimateFee(ctx, *currency); err != nil {
			return
		}
	}

	stx, err := w.BuildTransfer(*to, *amount, *currency, WithFee(txFee), WithNonce(nonce))
	if err != nil {
		return
	}

	hash, err := client.SendTransaction(ctx, stx)
	if err != nil {
		return
	}

	fmt.Printf("submitted:  %s\n", hash)
	fmt.Printf("from:       %s\n", w.Address())
	fmt.Printf("to:         %s\n", *to)
	fmt.Printf("amount:     %d %s\n", *amount, *currency)
	fmt.Printf("fee:        %d\n", txFee)

	if store != nil {
		if err = store.PutTransaction(stx, StatusPending); err != nil {
			return
		}
	}

	if !*wait {
		return
	}

	receipt, err := client.WaitForConfirmation(ctx, hash, 0)
	if err != nil {
		return
	}

	fmt.Printf("status:     %s (block %d)\n", receipt.Status, receipt.BlockHeight)

	if store != nil {
		err = store.SetTransactionStatus(hash, receipt.Status, receipt.BlockHeight)
	}

	return
}

func cmdWatch(args []string) (err error) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	nodeURL := fs.String("node", "", "Node base url (default: devnet)")
	timeout := fs.Duration("timeout", 2*time.Minute, "Give up after this long")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		err = errors.New("usage: nova watch [-node URL] [-timeout D] TXHASH")
		return
	}
	hash := fs.Arg(0)

	client, err := nodeClient(*nodeURL)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	watcher := client.WatchTransaction(ctx, hash)
	defer watcher.Close()

	cleanup := watcher.On(func(event rpcclient.TxStatusEvent) {
		fmt.Printf("transaction %s: %s (block %d)\n", event.TxID, event.Status, event.BlockHeight)
	})
	defer cleanup()

	<-watcher.Done()

	if ctx.Err() != nil {
		err = errors.Errorf("transaction %s did not confirm within %s", hash, *timeout)
	}

	return
}
