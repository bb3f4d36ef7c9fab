// Package contract binds the digital will contract ABI to a provider.
package contract

// WillABI is the JSON ABI of the digital will contract. It covers only the
// functions the client reads or submits.
const WillABI = `[
  {
    "type": "function",
    "name": "wills",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [
      {"name": "beneficiary", "type": "address"},
      {"name": "assetType", "type": "uint8"},
      {
        "name": "assetInfo",
        "type": "tuple",
        "components": [
          {"name": "assetAddress", "type": "address"},
          {"name": "amountOrId", "type": "uint256"},
          {"name": "metadata", "type": "string"}
        ]
      },
      {"name": "active", "type": "bool"}
    ]
  },
  {
    "type": "function",
    "name": "tokenURI",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [{"name": "", "type": "string"}]
  },
  {
    "type": "function",
    "name": "ownerOf",
    "stateMutability": "view",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function",
    "name": "mintNFT",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "beneficiary", "type": "address"},
      {"name": "assetType", "type": "uint8"},
      {"name": "assetAddress", "type": "address"},
      {"name": "amountOrId", "type": "uint256"},
      {"name": "metadata", "type": "string"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "checkIn",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": []
  },
  {
    "type": "function",
    "name": "executeWill",
    "stateMutability": "nonpayable",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": []
  }
]`

// Contract function names.
const (
	FuncWills       = "wills"
	FuncTokenURI    = "tokenURI"
	FuncOwnerOf     = "ownerOf"
	FuncMintNFT     = "mintNFT"
	FuncCheckIn     = "checkIn"
	FuncExecuteWill = "executeWill"
)

// AssetTypeToken is the only asset type the client mints.
const AssetTypeToken uint8 = 1
