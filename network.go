package nova

import "github.com/pkg/errors"

func init() {
	MainNetParams.Name = NetworkMainNet
	MainNetParams.Magic = NetworkMagicMainNet
	MainNetParams.AddressPrefix = AddressHRP
	MainNetParams.NativeCurrency = NativeCurrency
	MainNetParams.NodeURL = "https://rpc.novaprotocol.io"

	TestNetParams.Name = NetworkTestNet
	TestNetParams.Magic = NetworkMagicTestNet
	TestNetParams.AddressPrefix = AddressHRP
	TestNetParams.NativeCurrency = NativeCurrency
	TestNetParams.NodeURL = "https://rpc.testnet.novaprotocol.io"

	DevNetParams.Name = NetworkDevNet
	DevNetParams.Magic = NetworkMagicDevNet
	DevNetParams.AddressPrefix = AddressHRP
	DevNetParams.NativeCurrency = NativeCurrency
	DevNetParams.NodeURL = "http://localhost:9070"
}

// Addresses are self-certifying (the payload is the raw public key), so the
// bech32 prefix is the same on every network. The magic only matters to the
// node handshake and block explorers.
type NetworkParams struct {
	Name           Network
	Magic          NetworkMagic
	AddressPrefix  string
	NativeCurrency string
	NodeURL        string
}

var MainNetParams = NetworkParams{}
var TestNetParams = NetworkParams{}
var DevNetParams = NetworkParams{}

const (
	NetworkMainNet Network = "mainnet"
	NetworkTestNet Network = "testnet"
	NetworkDevNet  Network = "devnet"
)

type Network string

func (n Network) Valid() bool {
	return n == NetworkMainNet || n == NetworkTestNet || n == NetworkDevNet
}

func (n Network) Validate() (err error) {
	if !n.Valid() {
		err = errors.Wrapf(ErrNetworkInvalid, "'%s'", n)
	}
	return
}

func (n Network) Params() (params *NetworkParams, err error) {
	if err = n.Validate(); err != nil {
		return
	}

	switch n {
	case NetworkMainNet:
		return &MainNetParams, nil
	case NetworkTestNet:
		return &TestNetParams, nil
	case NetworkDevNet:
		return &DevNetParams, nil
	}

	return
}

type NetworkMagic uint64

const (
	NetworkMagicMainNet NetworkMagic = 78001
	NetworkMagicTestNet NetworkMagic = 78002
	NetworkMagicDevNet  NetworkMagic = 78042
)
