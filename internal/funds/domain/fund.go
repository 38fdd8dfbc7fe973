package domain

import "github.com/shopspring/decimal"

// PriceChanges holds the percentage change over the last five trading days
type PriceChanges struct {
	Day1 float64 `json:"day1"`
	Day2 float64 `json:"day2"`
	Day3 float64 `json:"day3"`
	Day4 float64 `json:"day4"`
	Day5 float64 `json:"day5"`
}

// FundRecord is one row of the fund list as delivered by the data provider
type FundRecord struct {
	Code          string          `json:"fundCode"`
	Name          string          `json:"fundName"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	BasePriceDate string          `json:"basePriceDate"`
	PriceChanges  PriceChanges    `json:"priceChanges"`
}

// Returns are trailing total returns in percent
type Returns struct {
	OneMonth    float64 `json:"oneMonth"`
	ThreeMonths float64 `json:"threeMonths"`
	SixMonths   float64 `json:"sixMonths"`
	OneYear     float64 `json:"oneYear"`
	ThreeYears  float64 `json:"threeYears"`
}

// Risk metrics
type Risk struct {
	StandardDeviation float64 `json:"standardDeviation"`
	SharpeRatio       float64 `json:"sharpeRatio"`
	MaxDrawdown       float64 `json:"maxDrawdown"`
}

// FeeBreakdown splits the management fee between the parties
type FeeBreakdown struct {
	Company     float64 `json:"company"`
	Distributor float64 `json:"distributor"`
	Trustee     float64 `json:"trustee"`
}

// Fees charged by the fund
type Fees struct {
	PurchaseFee            string       `json:"purchaseFee"`
	RedemptionFee          string       `json:"redemptionFee"`
	ManagementFee          float64      `json:"managementFee"`
	ManagementFeeBreakdown FeeBreakdown `json:"managementFeeBreakdown"`
}

// Info is descriptive fund metadata
type Info struct {
	InceptionDate     string `json:"inceptionDate"`
	MaturityDate      string `json:"maturityDate"`
	DividendFrequency string `json:"dividendFrequency"`
	Benchmark         string `json:"benchmark"`
	Description       string `json:"description"`
}

// Performance is a price series with its benchmark, aligned by index
type Performance struct {
	Dates     []string  `json:"dates"`
	Prices    []float64 `json:"prices"`
	Benchmark []float64 `json:"benchmark"`
}

// FundDetail extends FundRecord with the data shown on the detail page
type FundDetail struct {
	FundRecord
	Day1Amount  decimal.Decimal `json:"day1Amount"`
	NetAssets   float64         `json:"netAssets"`
	Returns     Returns         `json:"returns"`
	Risk        Risk            `json:"risk"`
	Fees        Fees            `json:"fees"`
	Info        Info            `json:"info"`
	Performance Performance     `json:"performanceData"`
}
