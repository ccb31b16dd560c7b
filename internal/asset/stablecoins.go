package asset

import "github.com/ethereum/go-ethereum/common"

// Chain ids the registry ships addresses for.
const (
	ChainEthereum = 1
	ChainBSC      = 56
	ChainPolygon  = 137
	ChainArbitrum = 42161
	ChainOptimism = 10
	ChainBase     = 8453
)

// DefaultRegistry returns the built-in stablecoin registry.
func DefaultRegistry() *Registry {
	return NewRegistry([]Asset{
		{
			ID:     "usdt",
			Name:   "Tether USD",
			Symbol: "USDT",
			Addresses: map[int64]common.Address{
				ChainEthereum: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
				ChainBSC:      common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
				ChainPolygon:  common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"),
				ChainArbitrum: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
				ChainOptimism: common.HexToAddress("0x94b008aA00579c1307B0EF2c499aD98a8ce58e58"),
				ChainBase:     common.HexToAddress("0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2"),
			},
			Decimals:  6,
			PegTarget: 1.0,
			Backing:   FiatBacked,
		},
		{
			ID:     "usdc",
			Name:   "USD Coin",
			Symbol: "USDC",
			Addresses: map[int64]common.Address{
				ChainEthereum: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				ChainBSC:      common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
				ChainPolygon:  common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
				ChainArbitrum: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
				ChainOptimism: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
				ChainBase:     common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			},
			Decimals:  6,
			PegTarget: 1.0,
			Backing:   FiatBacked,
		},
		{
			ID:     "dai",
			Name:   "Dai Stablecoin",
			Symbol: "DAI",
			Addresses: map[int64]common.Address{
				ChainEthereum: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
				ChainBSC:      common.HexToAddress("0x1AF3F329e8BE154074D8769D1FFa4eE058B1DBc3"),
				ChainPolygon:  common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"),
				ChainArbitrum: common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
				ChainOptimism: common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
				ChainBase:     common.HexToAddress("0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb"),
			},
			Decimals:  18,
			PegTarget: 1.0,
			Backing:   CryptoBacked,
		},
		{
			ID:     "busd",
			Name:   "Binance USD",
			Symbol: "BUSD",
			Addresses: map[int64]common.Address{
				ChainEthereum: common.HexToAddress("0x4Fabb145d64652a948d72533023f6E7A623C7C53"),
				ChainBSC:      common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"),
			},
			Decimals:  18,
			PegTarget: 1.0,
			Backing:   FiatBacked,
		},
		{
			ID:     "frax",
			Name:   "Frax",
			Symbol: "FRAX",
			Addresses: map[int64]common.Address{
				ChainEthereum: common.HexToAddress("0x853d955aCEf822Db058eb8505911ED77F175b99e"),
				ChainBSC:      common.HexToAddress("0x90C97F71E18723b0Cf0dfa30ee176Ab653E89F40"),
				ChainPolygon:  common.HexToAddress("0x45c32fA6DF82ead1e2EF74d17b76547EDdFaFF89"),
				ChainArbitrum: common.HexToAddress("0x17FC002b466eEc40DaE837Fc4bE5c67993ddBd6F"),
				ChainOptimism: common.HexToAddress("0x2E3D870790dC77A83DD1d18184Acc7439A53f475"),
			},
			Decimals:  18,
			PegTarget: 1.0,
			Backing:   Algorithmic,
		},
	})
}
