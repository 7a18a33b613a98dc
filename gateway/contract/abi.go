package contract

// RealEstateMarketplaceABI はRealEstateMarketplaceコントラクトのABI
const RealEstateMarketplaceABI = `[
  {
    "inputs": [
      {"internalType": "string", "name": "_title", "type": "string"},
      {"internalType": "string", "name": "_location", "type": "string"},
      {"internalType": "uint256", "name": "_price", "type": "uint256"}
    ],
    "name": "mintProperty",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "_propertyId", "type": "uint256"},
      {"internalType": "uint256", "name": "_price", "type": "uint256"}
    ],
    "name": "listPropertyForSale",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_propertyId", "type": "uint256"}],
    "name": "buyProperty",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "getTotalProperties",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "_propertyId", "type": "uint256"}],
    "name": "getPropertyDetails",
    "outputs": [
      {
        "components": [
          {"internalType": "uint256", "name": "id", "type": "uint256"},
          {"internalType": "string", "name": "title", "type": "string"},
          {"internalType": "string", "name": "location", "type": "string"},
          {"internalType": "uint256", "name": "price", "type": "uint256"},
          {"internalType": "address payable", "name": "owner", "type": "address"},
          {"internalType": "bool", "name": "forSale", "type": "bool"}
        ],
        "internalType": "struct RealEstateMarketplace.Property",
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

// コントラクトのメソッド名
const (
	methodMintProperty        = "mintProperty"
	methodListPropertyForSale = "listPropertyForSale"
	methodBuyProperty         = "buyProperty"
	methodGetTotalProperties  = "getTotalProperties"
	methodGetPropertyDetails  = "getPropertyDetails"
)

var requiredMethods = []string{
	methodMintProperty,
	methodListPropertyForSale,
	methodBuyProperty,
	methodGetTotalProperties,
	methodGetPropertyDetails,
}
