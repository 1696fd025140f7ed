package nova

import (
	"testing"

	"github.com/pkg/errors"
)

func TestNetwork_Validate(t *testing.T) {
	for _, network := range []Network{NetworkMainNet, NetworkTestNet, NetworkDevNet} {
		if !network.Valid() {
			t.Fatalf("expected '%s' to be valid", network)
		}
		if err := network.Validate(); err != nil {
			t.Fatalf("%+v", err)
		}
	}

	for _, network := range []Network{"", "regtest", "Mainnet"} {
		if network.Valid() {
			t.Fatalf("expected '%s' to be invalid", network)
		}
		if err := network.Validate(); !errors.Is(err, ErrNetworkInvalid) {
			t.Fatalf("expected ErrNetworkInvalid for '%s', got %+v", network, err)
		}
	}
}

func TestNetwork_Params(t *testing.T) {
	magics := make(map[NetworkMagic]Network)

	for _, network := range []Network{NetworkMainNet, NetworkTestNet, NetworkDevNet} {
		params, err := network.Params()
		if err != nil {
			t.Fatalf("%+v", err)
		}

		if params.Name != network {
			t.Fatalf("params for '%s' carry name '%s'", network, params.Name)
		}
		if params.AddressPrefix != AddressHRP {
			t.Fatalf("unexpected address prefix '%s'", params.AddressPrefix)
		}
		if params.NativeCurrency != NativeCurrency {
			t.Fatalf("unexpected native currency '%s'", params.NativeCurrency)
		}
		if params.NodeURL == "" {
			t.Fatalf("missing node url for '%s'", network)
		}

		if previous, taken := magics[params.Magic]; taken {
			t.Fatalf("magic %d is shared by '%s' and '%s'", params.Magic, previous, network)
		}
		magics[params.Magic] = network
	}

	if _, err := Network("unknown").Params(); !errors.Is(err, ErrNetworkInvalid) {
		t.Fatalf("expected ErrNetworkInvalid, got %+v", err)
	}
}
