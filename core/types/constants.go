package types

// TokenSymbol is the ticker of the base asset
const TokenSymbol = "RNT"

// TokenName is the display name of the base asset
const TokenName = "BitRent Token"

// TokenDecimals is the number of decimal places of the base asset
const TokenDecimals = 18

// InitialSupply is the fixed token emission in raw units (1e27)
const InitialSupply = "1000000000000000000000000000"

// DefaultPresaleTokenPool is the raw-unit pool priced by presale
// finalization (2e26)
const DefaultPresaleTokenPool = "200000000000000000000000000"
