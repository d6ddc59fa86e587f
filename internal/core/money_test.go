package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		valid bool
	}{
		{"1234567.89", 123456789, true},
		{"  1000 ", 100000, true},
		{"$2,500.50", 250050, true},
		{"0", 0, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"12a34", 0, false},
		{"-500", 0, false}, // negative coerces to missing
	}
	for _, tc := range cases {
		m := ParseMoney(tc.in)
		if m.Valid != tc.valid {
			t.Fatalf("ParseMoney(%q).Valid = %v, want %v", tc.in, m.Valid, tc.valid)
		}
		if m.Valid && m.Cents != tc.cents {
			t.Fatalf("ParseMoney(%q).Cents = %d, want %d", tc.in, m.Cents, tc.cents)
		}
	}
}

func TestMoneySub_ClipsAtZero(t *testing.T) {
	budget := ParseMoney("100")
	approved := ParseMoney("250")
	pending := budget.Sub(approved)
	if !pending.Valid || pending.Cents != 0 {
		t.Fatalf("pending = %+v, want valid zero", pending)
	}
}

func TestMoneySub_InvalidOperand(t *testing.T) {
	if got := ParseMoney("100").Sub(Money{}); got.Valid {
		t.Fatalf("subtracting invalid money should yield invalid, got %+v", got)
	}
}

func TestFormatAbbrev(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{150000000000, "$1.5B"},
		{230000000, "$2.3M"},
		{150000, "$1.5K"},
		{50000, "$500"},
		{0, "$0"},
		{250000000000000, "$2.5T"},
	}
	for _, tc := range cases {
		if got := FormatAbbrev(tc.cents); got != tc.want {
			t.Errorf("FormatAbbrev(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
