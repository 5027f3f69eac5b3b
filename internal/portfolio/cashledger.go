package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

// CashSummary totals a set of cash flows.
type CashSummary struct {
	TotalDeposits    decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals decimal.Decimal `json:"totalWithdrawals"`
	NetInvested      decimal.Decimal `json:"netInvested"`
	Count            int             `json:"count"`
}

// SummarizeCash adds up deposits and withdrawals.
// Net can be negative; withdrawals are not capped by deposits.
func SummarizeCash(flows []models.CashFlow) CashSummary {
	var s CashSummary
	for _, f := range flows {
		switch f.Type {
		case models.CashDeposit:
			s.TotalDeposits = s.TotalDeposits.Add(f.Amount)
		case models.CashWithdrawal:
			s.TotalWithdrawals = s.TotalWithdrawals.Add(f.Amount)
		default:
			continue
		}
		s.Count++
	}
	s.NetInvested = s.TotalDeposits.Sub(s.TotalWithdrawals)
	return s
}

// NetCashInvested is deposits minus withdrawals.
func NetCashInvested(flows []models.CashFlow) decimal.Decimal {
	return SummarizeCash(flows).NetInvested
}
