package reconcile

import "regexp"

var explorerByChain = map[int64]string{
	1:        "https://etherscan.io",
	11155111: "https://sepolia.etherscan.io",
	8453:     "https://basescan.org",
	84532:    "https://sepolia.basescan.org",
	42161:    "https://arbiscan.io",
	421614:   "https://sepolia.arbiscan.io",
	10:       "https://optimistic.etherscan.io",
	137:      "https://polygonscan.com",
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ExplorerURL links a proof to the chain's public explorer. Proof hashes shaped like
// a transaction hash link to the transaction, anything else to the verifier contract.
// Unknown chains and empty proof hashes yield nil.
func ExplorerURL(chainID int64, contractAddress string, proofHash string) *string {
	if proofHash == "" {
		return nil
	}
	base, ok := explorerByChain[chainID]
	if !ok {
		return nil
	}
	var url string
	switch {
	case txHashPattern.MatchString(proofHash):
		url = base + "/tx/" + proofHash
	case contractAddress != "":
		url = base + "/address/" + contractAddress
	default:
		return nil
	}
	return &url
}
