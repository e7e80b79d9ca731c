package cache

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite
	cache *Cache
	key   Key
	bars  []types.Kline
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) SetupTest() {
	c, err := New(suite.T().TempDir(), nil)
	suite.Require().NoError(err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.cache = c
	suite.key = Key{Symbol: "BTC/USDT", Interval: types.Interval1d, Start: start, End: start.AddDate(0, 0, 3)}
	suite.bars = mocks.Bars("BTC/USDT", start, 1, [2]float64{100, 101}, [2]float64{101, 103}, [2]float64{103, 102})
}

func (suite *CacheTestSuite) TestFileName() {
	suite.Equal("BTC-USDT_1d_20240101T000000Z_20240104T000000Z.parquet", suite.key.FileName())
}

func (suite *CacheTestSuite) TestReadMissing() {
	bars, ok, err := suite.cache.Read(suite.key)

	suite.NoError(err)
	suite.False(ok)
	suite.Nil(bars)
}

func (suite *CacheTestSuite) TestWriteThenRead() {
	written, err := suite.cache.Write(suite.key, suite.bars)
	suite.Require().NoError(err)
	suite.True(written)

	bars, ok, err := suite.cache.Read(suite.key)
	suite.Require().NoError(err)
	suite.True(ok)
	suite.Require().Len(bars, 3)

	for i := range bars {
		suite.Equal(suite.bars[i].Symbol, bars[i].Symbol)
		suite.True(suite.bars[i].OpenTime.Equal(bars[i].OpenTime))
		suite.Equal(suite.bars[i].Open, bars[i].Open)
		suite.Equal(suite.bars[i].High, bars[i].High)
		suite.Equal(suite.bars[i].Low, bars[i].Low)
		suite.Equal(suite.bars[i].Close, bars[i].Close)
		suite.Equal(suite.bars[i].Volume, bars[i].Volume)
	}
}

func (suite *CacheTestSuite) TestSecondWriteIsNoop() {
	_, err := suite.cache.Write(suite.key, suite.bars)
	suite.Require().NoError(err)

	info, err := os.Stat(suite.cache.Path(suite.key))
	suite.Require().NoError(err)

	written, err := suite.cache.Write(suite.key, suite.bars[:1])
	suite.NoError(err)
	suite.False(written)

	after, err := os.Stat(suite.cache.Path(suite.key))
	suite.Require().NoError(err)
	suite.Equal(info.ModTime(), after.ModTime())

	bars, _, err := suite.cache.Read(suite.key)
	suite.NoError(err)
	suite.Len(bars, 3)
}

func (suite *CacheTestSuite) TestConcurrentReadersAndWriter() {
	var wg sync.WaitGroup

	results := make(chan int, 16)

	wg.Add(1)

	go func() {
		defer wg.Done()

		_, err := suite.cache.Write(suite.key, suite.bars)
		suite.NoError(err)
	}()

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			bars, ok, err := suite.cache.Read(suite.key)
			suite.NoError(err)

			if ok {
				results <- len(bars)
			}
		}()
	}

	wg.Wait()
	close(results)

	// a reader sees either nothing or the complete file
	for n := range results {
		suite.Equal(3, n)
	}
}
