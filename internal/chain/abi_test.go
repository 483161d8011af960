package chain

import "testing"

func TestParseABIs(t *testing.T) {
	amm, erc20, err := parseABIs()
	if err != nil {
		t.Fatalf("parseABIs: %v", err)
	}

	for _, method := range []string{"numMarkets", "getMarket", "getBalances", "getCurrentPrice", "buy", "claim"} {
		if _, ok := amm.Methods[method]; !ok {
			t.Fatalf("amm abi missing method %q", method)
		}
	}
	for _, method := range []string{"allowance", "approve"} {
		if _, ok := erc20.Methods[method]; !ok {
			t.Fatalf("erc20 abi missing method %q", method)
		}
	}

	// getMarket's output order is what the unpacking in Market() relies on.
	outputs := amm.Methods["getMarket"].Outputs
	if len(outputs) != 9 {
		t.Fatalf("getMarket outputs = %d, want 9", len(outputs))
	}
	wantTypes := []string{"string", "uint64", "bool", "bool", "uint8", "uint16", "uint256", "uint256", "uint256"}
	for i, want := range wantTypes {
		if got := outputs[i].Type.String(); got != want {
			t.Fatalf("getMarket output %d = %s, want %s", i, got, want)
		}
	}
}
