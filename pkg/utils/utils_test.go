package utils

import (
	"math/big"
	"testing"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"", 5, ""},
		{"abc", 2, "ab"},
		{"abc", 3, "abc"},
	}

	for _, tt := range tests {
		result := TruncateString(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("TruncateString(%q, %d) = %q; want %q", tt.input, tt.length, result, tt.expected)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123", "123"},
		{"1234", "1,234"},
		{"123456", "123,456"},
		{"1234567", "1,234,567"},
		{"1234.56", "1,234.56"},
		{"-1234", "-1,234"},
		{"", ""},
	}

	for _, tt := range tests {
		result := AddCommas(tt.input)
		if result != tt.expected {
			t.Errorf("AddCommas(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		decimals int
		expected string
	}{
		{1234.5678, 2, "1,234.57"},
		{1234.5, 2, "1,234.50"},
		{0, 2, "0.00"},
	}

	for _, tt := range tests {
		result := FormatFloat(tt.input, tt.decimals)
		if result != tt.expected {
			t.Errorf("FormatFloat(%f, %d) = %q; want %q", tt.input, tt.decimals, result, tt.expected)
		}
	}
}

func TestFormatWei(t *testing.T) {
	tests := []struct {
		input    *big.Int
		decimals int
		expected string
	}{
		{new(big.Int).Mul(big.NewInt(1234), big.NewInt(1e18)), 2, "1,234.00"},
		{big.NewInt(2_500_000_000_000_000_000 / 1000), 4, "0.0025"},
		{big.NewInt(1e18), 0, "1"},
		{nil, 2, "0.00"},
	}

	for _, tt := range tests {
		result := FormatWei(tt.input, tt.decimals)
		if result != tt.expected {
			t.Errorf("FormatWei(%v, %d) = %q; want %q", tt.input, tt.decimals, result, tt.expected)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", "0xAb58...eC9B"},
		{"0x1234", "0x1234"},
		{"", ""},
	}

	for _, tt := range tests {
		result := FormatAddress(tt.input)
		if result != tt.expected {
			t.Errorf("FormatAddress(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}
