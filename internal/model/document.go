// Package model defines the core data structures for the rename agent.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDocumentType is returned when a document type label is not part of the closed set.
var ErrUnknownDocumentType = errors.New("unknown document type")

// DocumentType is the category a document was classified into.
type DocumentType string

// Document type constants. The string value is the persisted wire name.
const (
	DocumentReceipt        DocumentType = "receipt"
	DocumentBill           DocumentType = "bill"
	DocumentTaxDocument    DocumentType = "tax_document"
	DocumentBankStatement  DocumentType = "bank_statement"
	DocumentInvoice        DocumentType = "invoice"
	DocumentContract       DocumentType = "contract"
	DocumentMedical        DocumentType = "medical"
	DocumentInsurance      DocumentType = "insurance"
	DocumentInvestment     DocumentType = "investment"
	DocumentPayslip        DocumentType = "payslip"
	DocumentIdentity       DocumentType = "identity"
	DocumentCorrespondence DocumentType = "correspondence"
	DocumentManual         DocumentType = "manual"
	DocumentPhoto          DocumentType = "photo"
	DocumentGeneral        DocumentType = "general"
)

// DocumentTypeInfo describes a document type for classification and display.
type DocumentTypeInfo struct {
	Name          string
	Description   string
	Keywords      []string
	ExtractFields []FieldName
	Type          DocumentType
}

var documentTypes = []DocumentTypeInfo{
	{
		Type:          DocumentReceipt,
		Name:          "Receipt",
		Description:   "Purchase receipts from stores, restaurants, online orders",
		Keywords:      []string{"receipt", "purchase", "order", "transaction", "payment"},
		ExtractFields: []FieldName{FieldDate, FieldMerchant, FieldAmount, FieldDescription},
	},
	{
		Type:          DocumentBill,
		Name:          "Bill",
		Description:   "Utility bills, service provider statements, subscription charges",
		Keywords:      []string{"bill", "statement", "due", "utility", "service"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldAmount, FieldAccountNumber},
	},
	{
		Type:          DocumentTaxDocument,
		Name:          "Tax Document",
		Description:   "Tax forms like W-2, 1099, K-1, tax returns, tax statements",
		Keywords:      []string{"tax", "w-2", "w2", "1099", "k-1", "k1", "irs", "return", "1040"},
		ExtractFields: []FieldName{FieldYear, FieldFormType, FieldInstitution},
	},
	{
		Type:          DocumentBankStatement,
		Name:          "Bank Statement",
		Description:   "Bank account statements, transaction histories",
		Keywords:      []string{"bank", "statement", "account", "balance", "transaction"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldAccountNumber},
	},
	{
		Type:          DocumentInvoice,
		Name:          "Invoice",
		Description:   "Business invoices, billing statements",
		Keywords:      []string{"invoice", "inv", "billing", "due"},
		ExtractFields: []FieldName{FieldDate, FieldMerchant, FieldAmount, FieldDescription},
	},
	{
		Type:          DocumentContract,
		Name:          "Contract",
		Description:   "Legal contracts, agreements, terms of service",
		Keywords:      []string{"contract", "agreement", "terms", "signed"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldDescription},
	},
	{
		Type:          DocumentMedical,
		Name:          "Medical",
		Description:   "Medical records, lab results, prescriptions, EOBs",
		Keywords:      []string{"medical", "health", "doctor", "hospital", "lab", "prescription", "eob"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldDescription},
	},
	{
		Type:          DocumentInsurance,
		Name:          "Insurance",
		Description:   "Insurance policies, claims, ID cards",
		Keywords:      []string{"insurance", "policy", "claim", "coverage", "premium"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldAccountNumber, FieldDescription},
	},
	{
		Type:          DocumentInvestment,
		Name:          "Investment",
		Description:   "Brokerage statements, 401k, IRA, stock transactions",
		Keywords:      []string{"investment", "brokerage", "401k", "ira", "stock", "dividend", "capital gain"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldAccountNumber},
	},
	{
		Type:          DocumentPayslip,
		Name:          "Payslip",
		Description:   "Paycheck stubs, salary statements",
		Keywords:      []string{"pay", "salary", "wage", "paycheck", "stub", "earnings"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldAmount},
	},
	{
		Type:          DocumentIdentity,
		Name:          "Identity",
		Description:   "ID cards, passports, licenses, certifications",
		Keywords:      []string{"passport", "license", "id", "identification", "certificate"},
		ExtractFields: []FieldName{FieldDate, FieldDescription},
	},
	{
		Type:          DocumentCorrespondence,
		Name:          "Correspondence",
		Description:   "Letters, notices, official communications",
		Keywords:      []string{"letter", "notice", "dear", "sincerely", "correspondence"},
		ExtractFields: []FieldName{FieldDate, FieldInstitution, FieldDescription},
	},
	{
		Type:          DocumentManual,
		Name:          "Manual",
		Description:   "Product manuals, user guides, instructions",
		Keywords:      []string{"manual", "guide", "instructions", "user", "setup"},
		ExtractFields: []FieldName{FieldDescription, FieldInstitution},
	},
	{
		Type:          DocumentPhoto,
		Name:          "Photo",
		Description:   "Photographs, images, screenshots",
		Keywords:      []string{"photo", "image", "picture", "screenshot"},
		ExtractFields: []FieldName{FieldDate, FieldDescription},
	},
	{
		Type:          DocumentGeneral,
		Name:          "General",
		Description:   "Documents that don't fit other categories",
		ExtractFields: []FieldName{FieldDate, FieldDescription},
	},
}

// DocumentTypes returns every known document type in catalog order.
func DocumentTypes() []DocumentType {
	types := make([]DocumentType, len(documentTypes))
	for i, info := range documentTypes {
		types[i] = info.Type
	}
	return types
}

// DocumentTypeInfos returns the descriptive metadata for all document types.
func DocumentTypeInfos() []DocumentTypeInfo {
	infos := make([]DocumentTypeInfo, len(documentTypes))
	copy(infos, documentTypes)
	return infos
}

// Info returns the metadata for the document type.
func (t DocumentType) Info() (DocumentTypeInfo, bool) {
	for _, info := range documentTypes {
		if info.Type == t {
			return info, true
		}
	}
	return DocumentTypeInfo{}, false
}

// IsValid reports whether t is part of the closed set of document types.
func (t DocumentType) IsValid() bool {
	_, ok := t.Info()
	return ok
}

// DisplayName returns the human readable name, e.g. "Tax Document".
func (t DocumentType) DisplayName() string {
	if info, ok := t.Info(); ok {
		return info.Name
	}
	return string(t)
}

func (t DocumentType) String() string {
	return string(t)
}

// ParseDocumentType converts a label such as "Tax Document", "tax_document" or
// "TAX-DOCUMENT" into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	for _, info := range documentTypes {
		if string(info.Type) == key {
			return info.Type, nil
		}
		if strings.ReplaceAll(strings.ToLower(info.Name), " ", "_") == key {
			return info.Type, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, s)
}

// UnmarshalText rejects labels outside the closed set.
func (t *DocumentType) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText emits the wire name.
func (t DocumentType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocumentType, string(t))
	}
	return []byte(t), nil
}
