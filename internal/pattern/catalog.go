package pattern

import (
	"github.com/Veraticus/rename-agent/internal/model"
)

type catalogEntry struct {
	id          string
	template    string
	name        string
	description string
	keywords    []string
	priority    int
}

// catalog holds the built-in rules per type. Every template must parse and
// every document type must have at least one general entry.
var catalog = map[model.DocumentType][]catalogEntry{
	model.DocumentReceipt: {
		{id: "receipt_default", template: "{Date:YYYY-MM-DD} - {Merchant} - {Amount}", name: "Standard Receipt", description: "Date, merchant name, and amount"},
		{id: "receipt_detailed", template: "{Date:YYYY-MM-DD} - {Merchant} - {Description} - {Amount}", name: "Detailed Receipt", description: "Includes item description", priority: -1},
	},
	model.DocumentBill: {
		{id: "bill_default", template: "{Date:YYYY-MM} - {Service Provider} - {Amount}", name: "Standard Bill", description: "Month, provider, and amount"},
		{id: "bill_with_account", template: "{Date:YYYY-MM} - {Service Provider} - {Account Number}", name: "Bill with Account", description: "Includes account number", priority: -1},
	},
	model.DocumentTaxDocument: {
		{id: "tax_k1", template: "{Year} - K-1 - {Institution}", name: "K-1 Form", description: "K-1 partnership and S-corp forms", keywords: []string{"k-1", "k1", "schedule k"}, priority: 10},
		{id: "tax_1099", template: "{Year} - 1099 - {Institution}", name: "1099 Form", description: "1099 tax forms", keywords: []string{"1099"}, priority: 10},
		{id: "tax_w2", template: "{Year} - W-2 - {Institution}", name: "W-2 Form", description: "W-2 wage statements", keywords: []string{"w-2", "w2"}, priority: 10},
		{id: "tax_default", template: "{Year} - {Form Type} - {Institution}", name: "Standard Tax Document", description: "Generic tax document"},
	},
	model.DocumentBankStatement: {
		{id: "bank_default", template: "{Date:YYYY-MM} - {Bank Name} - Statement", name: "Monthly Statement", description: "Bank monthly statement"},
		{id: "bank_with_account", template: "{Date:YYYY-MM} - {Bank Name} - {Last 4 Digits}", name: "Statement with Account", description: "Includes last 4 digits of account", priority: -1},
	},
	model.DocumentInvoice: {
		{id: "invoice_default", template: "{Date:YYYY-MM-DD} - Invoice - {Merchant} - {Amount}", name: "Standard Invoice", description: "Date, vendor, and amount"},
	},
	model.DocumentContract: {
		{id: "contract_default", template: "{Date:YYYY-MM-DD} - {Institution} - {Description}", name: "Standard Contract", description: "Date, party, and description"},
	},
	model.DocumentMedical: {
		{id: "medical_default", template: "{Date:YYYY-MM-DD} - {Institution} - {Description}", name: "Standard Medical", description: "Date, provider, and description"},
		{id: "medical_eob", template: "{Date:YYYY-MM-DD} - EOB - {Institution}", name: "Explanation of Benefits", description: "Insurance EOB documents", keywords: []string{"eob", "explanation of benefits"}, priority: 10},
	},
	model.DocumentInsurance: {
		{id: "insurance_default", template: "{Date:YYYY} - {Institution} - {Description}", name: "Standard Insurance", description: "Year, insurer, and description"},
		{id: "insurance_policy", template: "{Date:YYYY} - {Institution} - Policy - {Account Number}", name: "Insurance Policy", description: "Policy document with number", keywords: []string{"policy"}, priority: 5},
	},
	model.DocumentInvestment: {
		{id: "investment_statement", template: "{Date:YYYY-MM} - {Institution} - Statement", name: "Investment Statement", description: "Monthly or quarterly statement"},
		{id: "investment_trade", template: "{Date:YYYY-MM-DD} - {Institution} - {Description}", name: "Trade Confirmation", description: "Individual trade confirmations", keywords: []string{"confirmation", "trade", "buy", "sell"}, priority: 5},
	},
	model.DocumentPayslip: {
		{id: "payslip_default", template: "{Date:YYYY-MM-DD} - {Institution} - Pay Stub", name: "Standard Pay Stub", description: "Pay date and employer"},
	},
	model.DocumentIdentity: {
		{id: "identity_default", template: "{Description} - {Date:YYYY}", name: "Identity Document", description: "Document type and year"},
	},
	model.DocumentCorrespondence: {
		{id: "correspondence_default", template: "{Date:YYYY-MM-DD} - {Institution} - {Description}", name: "Standard Correspondence", description: "Date, sender, and subject"},
	},
	model.DocumentManual: {
		{id: "manual_default", template: "{Institution} - {Description} - Manual", name: "Product Manual", description: "Brand and product name"},
	},
	model.DocumentPhoto: {
		{id: "photo_default", template: "{Date:YYYY-MM-DD} - {Description}", name: "Standard Photo", description: "Date and description"},
	},
	model.DocumentGeneral: {
		{id: "general_default", template: "{Date:YYYY-MM-DD} - {Description}", name: "General Document", description: "Date and description"},
	},
}

// Defaults returns fresh copies of the built-in rules for a type. The copies
// carry no timestamps or usage; the store stamps them when it seeds them.
func Defaults(docType model.DocumentType) []model.PatternRule {
	entries := catalog[docType]
	rules := make([]model.PatternRule, 0, len(entries))
	for _, e := range entries {
		rules = append(rules, model.PatternRule{
			ID:            e.id,
			DocumentType:  docType,
			Template:      e.template,
			Name:          e.name,
			Description:   e.description,
			Origin:        model.OriginBuiltin,
			MatchKeywords: append([]string(nil), e.keywords...),
			Priority:      e.priority,
		})
	}
	return rules
}

// IsBuiltinID reports whether id belongs to a catalog entry.
func IsBuiltinID(id string) bool {
	for _, entries := range catalog {
		for _, e := range entries {
			if e.id == id {
				return true
			}
		}
	}
	return false
}
