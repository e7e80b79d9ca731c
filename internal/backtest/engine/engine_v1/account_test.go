package engine

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	suite.Suite
	account *account
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func (suite *AccountTestSuite) SetupTest() {
	suite.account = newAccount(10000)
}

func (suite *AccountTestSuite) TestBuyDebitsNotionalAndCommission() {
	suite.account.applyFill("AAPL", types.PurchaseTypeBuy, 10, 100, 1)

	suite.InDelta(10000-1000-1, suite.account.cashFloat(), 1e-9)
	suite.Equal(10.0, suite.account.quantity("AAPL"))
	suite.Equal(100.0, suite.account.position("AAPL").AverageEntryPrice)
}

func (suite *AccountTestSuite) TestSellCreditsNotionalLessCommission() {
	suite.account.applyFill("AAPL", types.PurchaseTypeBuy, 10, 100, 1)
	suite.account.applyFill("AAPL", types.PurchaseTypeSell, 10, 110, 1.1)

	suite.InDelta(10000-1001+1100-1.1, suite.account.cashFloat(), 1e-9)
	suite.Zero(suite.account.quantity("AAPL"))
	suite.Zero(suite.account.position("AAPL").AverageEntryPrice)
	suite.InDelta(2.1, suite.account.snapshot(0).TotalFees, 1e-9)
}

func (suite *AccountTestSuite) TestAverageEntryPrice() {
	suite.account.applyFill("AAPL", types.PurchaseTypeBuy, 10, 100, 0)
	suite.account.applyFill("AAPL", types.PurchaseTypeBuy, 30, 120, 0)
	suite.InDelta(115.0, suite.account.position("AAPL").AverageEntryPrice, 1e-9)

	// reducing keeps the entry price
	suite.account.applyFill("AAPL", types.PurchaseTypeSell, 20, 130, 0)
	suite.InDelta(115.0, suite.account.position("AAPL").AverageEntryPrice, 1e-9)

	// crossing zero starts a new entry
	suite.account.applyFill("AAPL", types.PurchaseTypeSell, 30, 90, 0)
	suite.Equal(-10.0, suite.account.quantity("AAPL"))
	suite.Equal(90.0, suite.account.position("AAPL").AverageEntryPrice)
}

func (suite *AccountTestSuite) TestTotalValueIsCashPlusMarketValue() {
	suite.account.applyFill("AAPL", types.PurchaseTypeBuy, 10, 100, 1)
	suite.account.applyFill("MSFT", types.PurchaseTypeBuy, 5, 300, 1.5)

	suite.account.mark("AAPL", 105)
	suite.account.mark("MSFT", 290)

	cash := 10000 - 1001 - 1501.5
	suite.InDelta(cash, suite.account.cashFloat(), 1e-9)
	suite.InDelta(cash+10*105+5*290, suite.account.totalValue(), 1e-9)
}

func (suite *AccountTestSuite) TestShortPositionValue() {
	suite.account.applyFill("AAPL", types.PurchaseTypeSell, 10, 100, 0)
	suite.account.mark("AAPL", 90)

	suite.InDelta(11000.0, suite.account.cashFloat(), 1e-9)
	suite.InDelta(11000.0-900, suite.account.totalValue(), 1e-9)
}

func (suite *AccountTestSuite) TestSnapshotSkipsFlatPositions() {
	suite.account.applyFill("AAPL", types.PurchaseTypeBuy, 10, 100, 0)
	suite.account.applyFill("AAPL", types.PurchaseTypeSell, 10, 100, 0)
	suite.account.applyFill("MSFT", types.PurchaseTypeBuy, 1, 300, 0)

	state := suite.account.snapshot(200)
	suite.Equal(map[string]float64{"MSFT": 1}, state.Positions)
	suite.InDelta(10000-300-200, state.AvailableMargin, 1e-9)
	suite.Equal([]string{"AAPL", "MSFT"}, suite.account.symbols())
}
