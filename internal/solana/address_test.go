package solana

import "testing"

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"system program", "11111111111111111111111111111111", false},
		{"wrapped sol", "So11111111111111111111111111111111111111112", false},
		{"empty", "", true},
		{"invalid alphabet", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", true},
		{"too short", "3yZe7d", true},
		{"evm address", "0x6B175474E89094C44Da98b954EedeAC495271d0F", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
