// internal/blockchain/evm/abi.go
package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20JSON = `[
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const routerJSON = `[
 {"type":"function","name":"getAmountsOut","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"type":"function","name":"swapExactTokensForETH","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"type":"function","name":"swapExactETHForTokens","stateMutability":"payable","inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const lensJSON = `[
 {"type":"function","name":"getAmountOut","stateMutability":"view","inputs":[{"name":"_token","type":"address"},{"name":"_amountIn","type":"uint256"},{"name":"_isBuy","type":"bool"}],"outputs":[{"name":"router","type":"address"},{"name":"amountOut","type":"uint256"}]}
]`

const curveRouterJSON = `[
 {"type":"function","name":"sell","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}]}],"outputs":[]},
 {"type":"function","name":"buy","stateMutability":"payable","inputs":[{"name":"params","type":"tuple","components":[{"name":"amountOutMin","type":"uint256"},{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}]}],"outputs":[]}
]`

// CurveEventsJSON describes the bonding-curve trade events.
const CurveEventsJSON = `[
 {"type":"event","name":"CurveBuy","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"token","type":"address","indexed":true},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountOut","type":"uint256","indexed":false}]},
 {"type":"event","name":"CurveSell","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"token","type":"address","indexed":true},{"name":"amountIn","type":"uint256","indexed":false},{"name":"amountOut","type":"uint256","indexed":false}]}
]`

var (
	erc20ABI       = mustParse(erc20JSON)
	routerABI      = mustParse(routerJSON)
	lensABI        = mustParse(lensJSON)
	curveRouterABI = mustParse(curveRouterJSON)
	// CurveEventsABI decodes CurveBuy / CurveSell logs.
	CurveEventsABI = mustParse(CurveEventsJSON)
)

// curveSellParams mirrors the curve router's sell tuple.
type curveSellParams struct {
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Token        common.Address
	To           common.Address
	Deadline     *big.Int
}

// curveBuyParams mirrors the curve router's buy tuple.
type curveBuyParams struct {
	AmountOutMin *big.Int
	Token        common.Address
	To           common.Address
	Deadline     *big.Int
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("evm: invalid abi: " + err.Error())
	}
	return parsed
}
