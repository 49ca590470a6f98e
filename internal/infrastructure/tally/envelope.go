package tally

import (
	"fmt"
	"strings"

	"github.com/accountsync/backend/internal/domain/accounting"
	"github.com/accountsync/backend/internal/domain/shared"
)

// ErrUnknownPartySide is returned when a voucher type outside the fixed
// party-side table needs an inferred debit/credit direction.
var ErrUnknownPartySide = shared.NewDomainError("BRIDGE_CONFIG", "Cannot determine party side for voucher type")

// engineVoucherTypes maps internal voucher types to the engine's
// vocabulary. Unrecognized types fall back to Journal.
var engineVoucherTypes = map[accounting.VoucherType]string{
	accounting.VoucherTypePayment:    "Payment",
	accounting.VoucherTypeReceipt:    "Receipt",
	accounting.VoucherTypeSales:      "Sales",
	accounting.VoucherTypePurchase:   "Purchase",
	accounting.VoucherTypeJournal:    "Journal",
	accounting.VoucherTypeContra:     "Contra",
	accounting.VoucherTypeDebitNote:  "Debit Note",
	accounting.VoucherTypeCreditNote: "Credit Note",
	accounting.VoucherTypeStockEntry: "Stock Journal",
}

// partyIsDebit is the fixed table for inferring which side a party ledger
// takes when a voucher carries no explicit entry split.
var partyIsDebit = map[accounting.VoucherType]bool{
	accounting.VoucherTypeSales:    true,
	accounting.VoucherTypePayment:  true,
	accounting.VoucherTypeReceipt:  false,
	accounting.VoucherTypePurchase: false,
}

// EngineVoucherType returns the engine-side name for a voucher type.
func EngineVoucherType(t accounting.VoucherType) string {
	if name, ok := engineVoucherTypes[t]; ok {
		return name
	}
	return "Journal"
}

// PartySide reports whether the party ledger of the given voucher type is
// the debit side. Types outside the fixed table are a configuration error.
func PartySide(t accounting.VoucherType) (bool, error) {
	isDebit, ok := partyIsDebit[t]
	if !ok {
		return false, ErrUnknownPartySide
	}
	return isDebit, nil
}

// EncodeVoucherImport renders a voucher as an engine import envelope.
// Entries are emitted in their stored order. Debit lines carry a negative
// amount with ISDEEMEDPOSITIVE=Yes, credit lines a positive amount with
// ISDEEMEDPOSITIVE=No; the sign flip happens here and nowhere else.
func EncodeVoucherImport(v *accounting.Voucher) string {
	engineType := EngineVoucherType(v.Type)
	date := v.Date.Format("20060102")

	var b strings.Builder
	b.WriteString("<ENVELOPE>\n")
	b.WriteString("  <HEADER>\n")
	b.WriteString("    <TALLYREQUEST>Import Data</TALLYREQUEST>\n")
	b.WriteString("  </HEADER>\n")
	b.WriteString("  <BODY>\n")
	b.WriteString("    <IMPORTDATA>\n")
	b.WriteString("      <REQUESTDESC>\n")
	b.WriteString("        <REPORTNAME>Vouchers</REPORTNAME>\n")
	b.WriteString("      </REQUESTDESC>\n")
	b.WriteString("      <REQUESTDATA>\n")
	b.WriteString("        <TALLYMESSAGE xmlns:UDF=\"TallyUDF\">\n")
	fmt.Fprintf(&b, "          <VOUCHER VCHTYPE=%q ACTION=\"Create\" OBJVIEW=\"Accounting Voucher View\">\n", engineType)
	fmt.Fprintf(&b, "            <DATE>%s</DATE>\n", date)
	fmt.Fprintf(&b, "            <VOUCHERTYPENAME>%s</VOUCHERTYPENAME>\n", engineType)
	fmt.Fprintf(&b, "            <VOUCHERNUMBER>%s</VOUCHERNUMBER>\n", escapeXML(v.VoucherNumber))
	fmt.Fprintf(&b, "            <REFERENCE>%s</REFERENCE>\n", escapeXML(v.Reference))
	fmt.Fprintf(&b, "            <NARRATION>%s</NARRATION>\n", escapeXML(v.Narration))
	fmt.Fprintf(&b, "            <PARTYLEDGERNAME>%s</PARTYLEDGERNAME>\n", escapeXML(v.PartyName))
	fmt.Fprintf(&b, "            <EFFECTIVEDATE>%s</EFFECTIVEDATE>\n", date)
	b.WriteString("            <ISINVOICE>No</ISINVOICE>\n")

	for _, entry := range v.Entries {
		amount := entry.Amount.Abs()
		side := "No"
		if entry.IsDebit {
			amount = amount.Neg()
			side = "Yes"
		}
		isParty := "No"
		if v.PartyName != "" && entry.LedgerName == v.PartyName {
			isParty = "Yes"
		}

		b.WriteString("            <ALLLEDGERENTRIES.LIST>\n")
		fmt.Fprintf(&b, "              <LEDGERNAME>%s</LEDGERNAME>\n", escapeXML(entry.LedgerName))
		fmt.Fprintf(&b, "              <ISDEEMEDPOSITIVE>%s</ISDEEMEDPOSITIVE>\n", side)
		b.WriteString("              <LEDGERFROMITEM>No</LEDGERFROMITEM>\n")
		b.WriteString("              <REMOVEZEROENTRIES>No</REMOVEZEROENTRIES>\n")
		fmt.Fprintf(&b, "              <ISPARTYLEDGER>%s</ISPARTYLEDGER>\n", isParty)
		fmt.Fprintf(&b, "              <ISLASTDEEMEDPOSITIVE>%s</ISLASTDEEMEDPOSITIVE>\n", side)
		fmt.Fprintf(&b, "              <AMOUNT>%s</AMOUNT>\n", amount.String())
		b.WriteString("            </ALLLEDGERENTRIES.LIST>\n")
	}

	b.WriteString("          </VOUCHER>\n")
	b.WriteString("        </TALLYMESSAGE>\n")
	b.WriteString("      </REQUESTDATA>\n")
	b.WriteString("    </IMPORTDATA>\n")
	b.WriteString("  </BODY>\n")
	b.WriteString("</ENVELOPE>")
	return b.String()
}

// EncodeStatusRequest renders the minimal probe used to check engine liveness.
func EncodeStatusRequest() string {
	return `<ENVELOPE>
  <HEADER><TALLYREQUEST>Export</TALLYREQUEST><TYPE>Data</TYPE><ID>List of Companies</ID></HEADER>
  <BODY><DESC><STATICVARIABLES><SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT></STATICVARIABLES></DESC></BODY>
</ENVELOPE>`
}

// EncodeCollectionRequest renders a TDL collection export. The company is
// optional; when set it is passed as the SVCURRENTCOMPANY static variable.
func EncodeCollectionRequest(collectionName, objectType string, fetch []string, company string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<ENVELOPE>\n")
	b.WriteString("  <HEADER>\n")
	b.WriteString("    <VERSION>1</VERSION>\n")
	b.WriteString("    <TALLYREQUEST>Export</TALLYREQUEST>\n")
	b.WriteString("    <TYPE>Collection</TYPE>\n")
	fmt.Fprintf(&b, "    <ID>%s</ID>\n", escapeXML(collectionName))
	b.WriteString("  </HEADER>\n")
	b.WriteString("  <BODY>\n")
	b.WriteString("    <DESC>\n")
	b.WriteString("      <STATICVARIABLES>\n")
	if company != "" {
		fmt.Fprintf(&b, "        <SVCURRENTCOMPANY>%s</SVCURRENTCOMPANY>\n", escapeXML(company))
	}
	b.WriteString("        <SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT>\n")
	b.WriteString("      </STATICVARIABLES>\n")
	b.WriteString("      <TDL>\n")
	b.WriteString("        <TDLMESSAGE>\n")
	fmt.Fprintf(&b, "          <COLLECTION NAME=%q>\n", collectionName)
	fmt.Fprintf(&b, "            <TYPE>%s</TYPE>\n", escapeXML(objectType))
	fmt.Fprintf(&b, "            <FETCH>%s</FETCH>\n", strings.Join(fetch, ", "))
	b.WriteString("          </COLLECTION>\n")
	b.WriteString("        </TDLMESSAGE>\n")
	b.WriteString("      </TDL>\n")
	b.WriteString("    </DESC>\n")
	b.WriteString("  </BODY>\n")
	b.WriteString("</ENVELOPE>")
	return b.String()
}

// EncodeListCompaniesRequest renders the company-list collection export.
func EncodeListCompaniesRequest() string {
	return EncodeCollectionRequest("ListOfCompanies", "Company", []string{"NAME"}, "")
}

// EncodeListLedgersRequest renders the ledger collection export for a company.
func EncodeListLedgersRequest(company string) string {
	return EncodeCollectionRequest("AllLedgers", "Ledger",
		[]string{"NAME", "PARENT", "OPENINGBALANCE", "CLOSINGBALANCE", "GUID"}, company)
}

// EncodeListVoucherTypesRequest renders the voucher-type collection export.
func EncodeListVoucherTypesRequest(company string) string {
	return EncodeCollectionRequest("All Voucher Types", "VoucherType",
		[]string{"NAME", "PARENT"}, company)
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
