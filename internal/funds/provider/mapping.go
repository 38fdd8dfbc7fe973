package provider

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tair/fundwatch/internal/funds/domain"
)

var (
	errNoFundsKey   = errors.New("response has no funds list")
	errNoValidFunds = errors.New("response has no usable fund records")
	errNoFundCode   = errors.New("record has no fund code")
)

// rawPriceChanges is the camelCase nested form some responses use
type rawPriceChanges struct {
	Day1       *float64         `json:"day1"`
	Day2       *float64         `json:"day2"`
	Day3       *float64         `json:"day3"`
	Day4       *float64         `json:"day4"`
	Day5       *float64         `json:"day5"`
	Day1Amount *decimal.Decimal `json:"day1Amount"`
}

// rawFund accepts both the documented snake_case fields and the camelCase
// variants seen in practice. Snake case wins when both are present.
type rawFund struct {
	FundCd        *string          `json:"fund_cd"`
	FundName      *string          `json:"fund_name"`
	BasePrice     *decimal.Decimal `json:"base_price"`
	BasePriceDate *string          `json:"base_price_date"`
	Change1d      *float64         `json:"price_change_1d"`
	Change2d      *float64         `json:"price_change_2d"`
	Change3d      *float64         `json:"price_change_3d"`
	Change4d      *float64         `json:"price_change_4d"`
	Change5d      *float64         `json:"price_change_5d"`

	FundCode         *string          `json:"fundCode"`
	FundNameAlt      *string          `json:"fundName"`
	BasePriceAlt     *decimal.Decimal `json:"basePrice"`
	BasePriceDateAlt *string          `json:"basePriceDate"`
	PriceChanges     *rawPriceChanges `json:"priceChanges"`
}

type rawReturns struct {
	OneMonth    float64 `json:"one_month"`
	ThreeMonths float64 `json:"three_months"`
	SixMonths   float64 `json:"six_months"`
	OneYear     float64 `json:"one_year"`
	ThreeYears  float64 `json:"three_years"`
}

type rawRisk struct {
	StandardDeviation float64 `json:"standard_deviation"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	MaxDrawdown       float64 `json:"max_drawdown"`
}

type rawFees struct {
	PurchaseFee            string  `json:"purchase_fee"`
	RedemptionFee          string  `json:"redemption_fee"`
	ManagementFee          float64 `json:"management_fee"`
	ManagementFeeBreakdown struct {
		Company     float64 `json:"company"`
		Distributor float64 `json:"distributor"`
		Trustee     float64 `json:"trustee"`
	} `json:"management_fee_breakdown"`
}

type rawInfo struct {
	InceptionDate     string `json:"inception_date"`
	MaturityDate      string `json:"maturity_date"`
	DividendFrequency string `json:"dividend_frequency"`
	Benchmark         string `json:"benchmark"`
	Description       string `json:"description"`
}

type rawPerformance struct {
	Dates     []string  `json:"dates"`
	Prices    []float64 `json:"prices"`
	Benchmark []float64 `json:"benchmark"`
}

type rawDetail struct {
	rawFund
	Day1Amount  *decimal.Decimal `json:"price_change_1d_amount"`
	NetAssets   float64          `json:"net_assets"`
	Returns     rawReturns       `json:"returns"`
	Risk        rawRisk          `json:"risk"`
	Fees        rawFees          `json:"fees"`
	Info        rawInfo          `json:"info"`
	Performance *rawPerformance  `json:"performance_data"`
}

// decodeFundList maps a list response. Individual records that cannot be
// decoded or lack a code are dropped; a non-empty list with nothing usable is
// an error.
func decodeFundList(body []byte) ([]domain.FundRecord, error) {
	var envelope struct {
		Funds *[]json.RawMessage `json:"funds"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode fund list: %w", err)
	}
	if envelope.Funds == nil {
		return nil, errNoFundsKey
	}

	funds := make([]domain.FundRecord, 0, len(*envelope.Funds))
	for _, item := range *envelope.Funds {
		var raw rawFund
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		rec, err := raw.record()
		if err != nil {
			continue
		}
		funds = append(funds, rec)
	}

	if len(funds) == 0 && len(*envelope.Funds) > 0 {
		return nil, errNoValidFunds
	}
	return funds, nil
}

func decodeFundDetail(body []byte) (*domain.FundDetail, error) {
	var raw rawDetail
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode fund detail: %w", err)
	}
	return raw.detail()
}

func (r rawFund) record() (domain.FundRecord, error) {
	code := firstString(r.FundCd, r.FundCode)
	if code == "" {
		return domain.FundRecord{}, errNoFundCode
	}

	name := firstString(r.FundName, r.FundNameAlt)
	if name == "" {
		name = code
	}

	price := decimal.Zero
	if p := firstDecimal(r.BasePrice, r.BasePriceAlt); p != nil {
		price = *p
	}

	nested := r.PriceChanges
	if nested == nil {
		nested = &rawPriceChanges{}
	}

	return domain.FundRecord{
		Code:          code,
		Name:          name,
		BasePrice:     price,
		BasePriceDate: firstString(r.BasePriceDate, r.BasePriceDateAlt),
		PriceChanges: domain.PriceChanges{
			Day1: firstFloat(r.Change1d, nested.Day1),
			Day2: firstFloat(r.Change2d, nested.Day2),
			Day3: firstFloat(r.Change3d, nested.Day3),
			Day4: firstFloat(r.Change4d, nested.Day4),
			Day5: firstFloat(r.Change5d, nested.Day5),
		},
	}, nil
}

func (r rawDetail) detail() (*domain.FundDetail, error) {
	rec, err := r.rawFund.record()
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	var nestedAmount *decimal.Decimal
	if r.PriceChanges != nil {
		nestedAmount = r.PriceChanges.Day1Amount
	}
	if a := firstDecimal(r.Day1Amount, nestedAmount); a != nil {
		amount = *a
	}

	d := &domain.FundDetail{
		FundRecord: rec,
		Day1Amount: amount,
		NetAssets:  r.NetAssets,
		Returns:    domain.Returns(r.Returns),
		Risk:       domain.Risk(r.Risk),
		Fees: domain.Fees{
			PurchaseFee:            r.Fees.PurchaseFee,
			RedemptionFee:          r.Fees.RedemptionFee,
			ManagementFee:          r.Fees.ManagementFee,
			ManagementFeeBreakdown: domain.FeeBreakdown(r.Fees.ManagementFeeBreakdown),
		},
		Info: domain.Info(r.Info),
	}
	if r.Performance != nil {
		d.Performance = domain.Performance(*r.Performance)
	}
	return d, nil
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func firstFloat(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstDecimal(vals ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
