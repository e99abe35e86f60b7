package categorization

import (
	"github.com/google/uuid"
)

// Categories assigned by the built-in keyword set.
const (
	FoodDining    = "Food & Dining"
	Groceries     = "Groceries"
	Shopping      = "Shopping"
	Transport     = "Transport"
	Travel        = "Travel"
	Fuel          = "Fuel"
	Entertainment = "Entertainment"
	Utilities     = "Bills & Utilities"
	Health        = "Health"
	Income        = "Income"
	Investments   = "Investments"
	Cash          = "Cash Withdrawal"
	Loans         = "EMI & Loans"
	Fees          = "Fees & Charges"
)

// Rule maps a keyword to a category. Rules with a UserID are user-defined
// and outrank the built-in set.
type Rule struct {
	ID       uuid.UUID
	UserID   *uuid.UUID
	Keyword  string
	Category string
	Priority int
}

func builtin(category string, keywords ...string) []Rule {
	out := make([]Rule, len(keywords))
	for i, k := range keywords {
		out[i] = Rule{Keyword: k, Category: category}
	}
	return out
}

// DefaultRules returns the built-in keyword set for Indian bank and card
// statements.
func DefaultRules() []Rule {
	var rules []Rule
	rules = append(rules, builtin(FoodDining,
		"SWIGGY", "ZOMATO", "DOMINOS", "MCDONALDS", "STARBUCKS", "KFC", "PIZZA HUT",
		"CHAI POINT", "RESTAURANT", "CAFE", "EATCLUB")...)
	rules = append(rules, builtin(Groceries,
		"BIGBASKET", "BLINKIT", "ZEPTO", "DMART", "RELIANCE FRESH", "MORE RETAIL",
		"NATURES BASKET", "SUPERMARKET", "GROFERS")...)
	rules = append(rules, builtin(Shopping,
		"AMAZON", "FLIPKART", "MYNTRA", "AJIO", "NYKAA", "MEESHO", "TATA CLIQ",
		"DECATHLON", "IKEA")...)
	rules = append(rules, builtin(Transport,
		"UBER", "OLA CABS", "RAPIDO", "METRO", "FASTAG", "PARKING")...)
	rules = append(rules, builtin(Travel,
		"IRCTC", "MAKEMYTRIP", "GOIBIBO", "CLEARTRIP", "INDIGO", "AIR INDIA",
		"VISTARA", "OYO", "AIRBNB", "REDBUS")...)
	rules = append(rules, builtin(Fuel,
		"INDIAN OIL", "IOCL", "BPCL", "HPCL", "BHARAT PETROLEUM", "SHELL", "PETROL")...)
	rules = append(rules, builtin(Entertainment,
		"NETFLIX", "HOTSTAR", "PRIME VIDEO", "SPOTIFY", "BOOKMYSHOW", "PVR", "INOX",
		"YOUTUBE")...)
	rules = append(rules, builtin(Utilities,
		"AIRTEL", "JIO", "VODAFONE", "BSNL", "ELECTRICITY", "BESCOM", "TATA POWER",
		"ADANI ELECTRICITY", "BROADBAND", "GAS BILL", "WATER BILL", "RECHARGE")...)
	rules = append(rules, builtin(Health,
		"APOLLO", "PHARMEASY", "1MG", "NETMEDS", "HOSPITAL", "PHARMACY", "PRACTO")...)
	rules = append(rules, builtin(Income,
		"SALARY", "SAL CREDIT", "INTEREST CREDIT", "DIVIDEND", "REFUND", "CASHBACK")...)
	rules = append(rules, builtin(Investments,
		"ZERODHA", "GROWW", "UPSTOX", "MUTUAL FUND", "SIP", "NPS", "PPF")...)
	rules = append(rules, builtin(Cash,
		"ATM WDL", "ATM WITHDRAWAL", "CASH WITHDRAWAL", "NWD")...)
	rules = append(rules, builtin(Loans,
		"EMI", "LOAN", "HOME LOAN", "BAJAJ FINSERV")...)
	rules = append(rules, builtin(Fees,
		"ANNUAL FEE", "LATE FEE", "FINANCE CHARGES", "GST", "SMS CHARGES")...)
	return rules
}
