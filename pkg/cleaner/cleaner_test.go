// pkg/cleaner/cleaner_test.go
package cleaner

import (
	"testing"

	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/model"
	"github.com/skydata/staging-ingress/pkg/refdata"
)

func makeTable(columns []string, rows ...[]string) *model.Table {
	t := model.NewTable(columns)
	for _, cells := range rows {
		row := make(model.Row, len(columns))
		for i, c := range columns {
			row[c] = cells[i]
		}
		t.Append(row)
	}
	return t
}

func testRefs(t *testing.T, airports, airlines []string) *Refs {
	t.Helper()
	r, err := refdata.NewResolver(zap.NewNop())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	refs := &Refs{Resolver: r}
	if airports != nil {
		refs.Airports = refdata.NewKeySet(airports)
	}
	if airlines != nil {
		refs.Airlines = refdata.NewKeySet(airlines)
	}
	return refs
}

func checkPartitionInvariant(t *testing.T, input *model.Table, result *model.CleaningResult) {
	t.Helper()
	if got := result.Clean.Len() + result.Quarantine.Len(); got != input.Len() {
		t.Errorf("clean %d + quarantine %d != input %d",
			result.Clean.Len(), result.Quarantine.Len(), input.Len())
	}
	if len(result.Reasons) != result.Quarantine.Len() {
		t.Errorf("reasons %d != quarantine rows %d", len(result.Reasons), result.Quarantine.Len())
	}
}

func TestPartitionMaskMismatch(t *testing.T) {
	table := makeTable([]string{"a"}, []string{"1"}, []string{"2"})
	if _, _, err := Partition(table, []bool{true}); err == nil {
		t.Fatal("expected error for mask length mismatch")
	}
}

func TestPartitionPreservesOrder(t *testing.T) {
	table := makeTable([]string{"a"}, []string{"1"}, []string{"2"}, []string{"3"}, []string{"4"})
	clean, quarantine, err := Partition(table, []bool{true, false, true, false})
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if clean.Len() != 2 || clean.Rows[0]["a"] != "1" || clean.Rows[1]["a"] != "3" {
		t.Errorf("clean rows out of order: %v", clean.Rows)
	}
	if quarantine.Len() != 2 || quarantine.Rows[0]["a"] != "2" || quarantine.Rows[1]["a"] != "4" {
		t.Errorf("quarantine rows out of order: %v", quarantine.Rows)
	}
}

func TestAirportsCleaning(t *testing.T) {
	input := makeTable(
		[]string{"AirportKey", "AirportName", "City", "Country"},
		[]string{" jfk ", "john f. kennedy international", "new york", "usa"},
		[]string{"LHR", "heathrow", "london", ""},
		[]string{"XXXX", "too long key", "nowhere", "france"},
	)

	result, err := Clean(input, Airports(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	checkPartitionInvariant(t, input, result)

	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1", result.Clean.Len())
	}
	row := result.Clean.Rows[0]
	if row["airportkey"] != "JFK" {
		t.Errorf("airportkey = %q, want JFK", row["airportkey"])
	}
	if row["airportname"] != "John F. Kennedy International" {
		t.Errorf("airportname = %q", row["airportname"])
	}
	if row["country"] != "United States" {
		t.Errorf("country = %q, want United States", row["country"])
	}

	if result.Quarantine.Len() != 2 {
		t.Fatalf("quarantine rows = %d, want 2", result.Quarantine.Len())
	}
	if result.Reasons[0] != "missing country" {
		t.Errorf("reason[0] = %q, want missing country", result.Reasons[0])
	}
	if result.Reasons[1] != "invalid airportkey format" {
		t.Errorf("reason[1] = %q, want invalid airportkey format", result.Reasons[1])
	}
	if got := result.Quarantine.Rows[0][ReasonColumn]; got != "missing country" {
		t.Errorf("quarantine reason column = %q", got)
	}
}

func TestAirportsStructuralError(t *testing.T) {
	input := makeTable([]string{"AirportName", "City", "Country"},
		[]string{"Heathrow", "London", "UK"})
	if _, err := Clean(input, Airports(), nil); err == nil {
		t.Fatal("expected structural error for missing airportkey column")
	}
}

func TestAirlinesCleaning(t *testing.T) {
	input := makeTable(
		[]string{"AirlineKey", "AirlineName", "Alliance"},
		[]string{"ba", "british  airways", "oneworld"},
		[]string{"VS", "Virgin Atlantic", "oneworld"},
		[]string{"BA", "British Airways Again", "sky team"},
		[]string{"DL", "Delta Air Lines", "banana"},
	)

	result, err := Clean(input, Airlines(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	checkPartitionInvariant(t, input, result)

	if result.Clean.Len() != 3 {
		t.Fatalf("clean rows = %d, want 3", result.Clean.Len())
	}
	if result.Quarantine.Len() != 1 || result.Reasons[0] != "duplicate airlinekey" {
		t.Fatalf("want one duplicate airlinekey quarantine, got %v", result.Reasons)
	}

	byKey := map[string]model.Row{}
	for _, row := range result.Clean.Rows {
		byKey[row["airlinekey"]] = row
	}
	if byKey["BA"]["airlinename"] != "British Airways" {
		t.Errorf("BA name = %q (keep-first violated?)", byKey["BA"]["airlinename"])
	}
	// Override wins over the source alliance value.
	if byKey["VS"]["alliance"] != "SkyTeam" {
		t.Errorf("VS alliance = %q, want SkyTeam", byKey["VS"]["alliance"])
	}
	// Outside the closed set coerces to None.
	if byKey["DL"]["alliance"] != "None" {
		t.Errorf("DL alliance = %q, want None", byKey["DL"]["alliance"])
	}
}

func TestAirlinesSynthesizedColumns(t *testing.T) {
	input := makeTable([]string{"AirlineKey"}, []string{"BA"}, []string{"DL"})

	result, err := Clean(input, Airlines(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", result.Warnings)
	}
	if result.Clean.Len() != 2 {
		t.Fatalf("clean rows = %d, want 2", result.Clean.Len())
	}
	row := result.Clean.Rows[0]
	if row["airlinename"] != "Ba" {
		t.Errorf("synthesized airlinename = %q, want Ba", row["airlinename"])
	}
	if row["alliance"] != "None" {
		t.Errorf("defaulted alliance = %q, want None", row["alliance"])
	}
}

func TestAirlinesMissingKeyColumnFatal(t *testing.T) {
	input := makeTable([]string{"AirlineName"}, []string{"British Airways"})
	if _, err := Clean(input, Airlines(), nil); err == nil {
		t.Fatal("expected structural error for missing airlinekey column")
	}
}

func TestFlightsCleaning(t *testing.T) {
	refs := testRefs(t, []string{"JFK", "LAX", "LHR"}, []string{"BA", "DL"})
	input := makeTable(
		[]string{"FlightKey", "Origin", "Destination", "AircraftType"},
		[]string{"ba1234", "jfk", "lhr", "boeing 777"},
		[]string{"DL100", "LAX", "LAX", "Airbus A320"},
		[]string{"BA1234", "LHR", "JFK", "Boeing 777"},
	)

	result, err := Clean(input, Flights(), refs)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	checkPartitionInvariant(t, input, result)

	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1: %v", result.Clean.Len(), result.Reasons)
	}
	row := result.Clean.Rows[0]
	if row["flightkey"] != "BA1234" || row["origin"] != "JFK" || row["destination"] != "LHR" {
		t.Errorf("normalized row = %v", row)
	}
	if row["aircrafttype"] != "Boeing 777" {
		t.Errorf("aircrafttype = %q, want Boeing 777", row["aircrafttype"])
	}

	wantReasons := map[string]bool{"origin equals destination": false, "duplicate flightkey": false}
	for _, r := range result.Reasons {
		if _, ok := wantReasons[r]; ok {
			wantReasons[r] = true
		}
	}
	for reason, seen := range wantReasons {
		if !seen {
			t.Errorf("expected quarantine reason %q, got %v", reason, result.Reasons)
		}
	}
}

func TestFlightsPrefixCorrection(t *testing.T) {
	refs := testRefs(t, []string{"JFK", "LHR"}, []string{"BA", "DL"})
	// Force the prefix correction deterministic.
	refs.Resolver.WithScorer(func(a, b string) int {
		if b == "BA" {
			return 90
		}
		return 0
	})
	input := makeTable(
		[]string{"FlightKey", "Origin", "Destination", "AircraftType"},
		[]string{"XY777", "JFK", "LHR", "Boeing 747"},
	)

	result, err := Clean(input, Flights(), refs)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1: %v", result.Clean.Len(), result.Reasons)
	}
	if got := result.Clean.Rows[0]["flightkey"]; got != "BA777" {
		t.Errorf("flightkey = %q, want BA777", got)
	}
}

func TestFlightsUpstreamHeaderNames(t *testing.T) {
	refs := testRefs(t, []string{"JFK", "LHR"}, []string{"BA"})
	input := makeTable(
		[]string{"FlightKey", "OriginAirportKey", "DestinationAirportKey", "AircraftType"},
		[]string{"BA1234", "jfk", "LHR", "Boeing 777"},
	)

	result, err := Clean(input, Flights(), refs)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1: %v", result.Clean.Len(), result.Reasons)
	}
	row := result.Clean.Rows[0]
	if row["origin"] != "JFK" || row["destination"] != "LHR" {
		t.Errorf("renamed columns not cleaned: %v", row)
	}
}

func TestFlightsWithoutReferenceData(t *testing.T) {
	// No reference data: resolution passes through, validation still runs.
	input := makeTable(
		[]string{"FlightKey", "Origin", "Destination", "AircraftType"},
		[]string{"BA100", "JFK", "LHR", "Boeing 777"},
	)
	result, err := Clean(input, Flights(), testRefs(t, nil, nil))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1: %v", result.Clean.Len(), result.Reasons)
	}
}

func TestPassengersCleaning(t *testing.T) {
	input := makeTable(
		[]string{"PassengerKey", "FullName", "Email", "LoyaltyStatus"},
		[]string{"P2042", "john  smith", "John.Smith2042@example.com", "gold"},
		[]string{"P3000", "jane doe", "jane.doe@example.com", "PLATINUM"},
		[]string{"P3001", "jane doe", "jane.doe@example.com", "platinum"},
		[]string{"P4000", "onlyname", "onlyname@example.com", "silver"},
	)

	result, err := Clean(input, Passengers(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	checkPartitionInvariant(t, input, result)

	if result.Clean.Len() != 2 {
		t.Fatalf("clean rows = %d, want 2: %v", result.Clean.Len(), result.Reasons)
	}
	// Regenerated keys are sequential from P1001 in surviving order.
	if k := result.Clean.Rows[0]["passengerkey"]; k != "P1001" {
		t.Errorf("first clean key = %q, want P1001", k)
	}
	if k := result.Clean.Rows[1]["passengerkey"]; k != "P1002" {
		t.Errorf("second clean key = %q, want P1002", k)
	}
	if e := result.Clean.Rows[0]["email"]; e != "john.smith@example.com" {
		t.Errorf("email = %q, want key digits removed", e)
	}

	// The duplicate triple and the single-word name are quarantined, with
	// raw pre-clean values preserved.
	if result.Quarantine.Len() != 2 {
		t.Fatalf("quarantine rows = %d, want 2: %v", result.Quarantine.Len(), result.Reasons)
	}
	dupRow := result.Quarantine.Rows[0]
	if dupRow["PassengerKey"] != "P3001" {
		t.Errorf("quarantine kept key %q, want raw P3001", dupRow["PassengerKey"])
	}
	if dupRow["LoyaltyStatus"] != "platinum" {
		t.Errorf("quarantine loyalty = %q, want raw lowercase value", dupRow["LoyaltyStatus"])
	}
	if result.Reasons[0] != "duplicate passenger" {
		t.Errorf("reason[0] = %q, want duplicate passenger", result.Reasons[0])
	}
	if result.Reasons[1] != "invalid fullname format" {
		t.Errorf("reason[1] = %q, want invalid fullname format", result.Reasons[1])
	}
}

func TestPassengersCleanColumnOrder(t *testing.T) {
	input := makeTable(
		[]string{"PassengerKey", "FullName", "Email", "LoyaltyStatus", "Extra"},
		[]string{"P2000", "john smith", "john.smith@example.com", "gold", "noise"},
	)
	result, err := Clean(input, Passengers(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	want := []string{"passengerkey", "fullname", "email", "loyaltystatus"}
	if len(result.Clean.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", result.Clean.Columns, want)
	}
	for i, c := range want {
		if result.Clean.Columns[i] != c {
			t.Errorf("column[%d] = %q, want %q", i, result.Clean.Columns[i], c)
		}
	}
}

func transactionRow(id, pid, fid, date, price, taxes, fees, total string) []string {
	return []string{id, pid, fid, date, price, taxes, fees, total}
}

var transactionColumns = []string{
	"TransactionID", "PassengerID", "FlightID", "TransactionDate",
	"TicketPrice", "Taxes", "BaggageFees", "TotalAmount",
}

func TestTransactionIDBackfill(t *testing.T) {
	table := makeTable([]string{"transactionid"},
		[]string{"4001"}, []string{"BAD"}, []string{"BAD"}, []string{"4005"})
	backfillTransactionIDs(table)

	want := []string{"4001", "4002", "4003", "4005"}
	for i, w := range want {
		if got := table.Rows[i]["transactionid"]; got != w {
			t.Errorf("row %d: transactionid = %q, want %q", i, got, w)
		}
	}
}

func TestTransactionIDBackfillSeed(t *testing.T) {
	table := makeTable([]string{"transactionid"},
		[]string{"oops"}, []string{"also bad"}, []string{"40100"})
	backfillTransactionIDs(table)

	want := []string{"40000", "40001", "40100"}
	for i, w := range want {
		if got := table.Rows[i]["transactionid"]; got != w {
			t.Errorf("row %d: transactionid = %q, want %q", i, got, w)
		}
	}
}

func TestTransactionsCleaning(t *testing.T) {
	input := makeTable(transactionColumns,
		transactionRow("40001", "P10420", "BA1234", "2023-Jan-05", "$100.00", "10.00", "5.00", "115.00"),
		transactionRow("40002", "P10421", "DL100", "2023/Feb/07", "100.00", "10.00", "5.00", "115.01"),
		transactionRow("40003", "P91000", "BA1234", "2023-Jan-05", "50.00", "5.00", "0.00", "55.00"),
		transactionRow("40001", "P10420", "BA1234", "2023-Jan-05", "$100.00", "10.00", "5.00", "115.00"),
	)

	result, err := Clean(input, Transactions(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	checkPartitionInvariant(t, input, result)

	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1: %v", result.Clean.Len(), result.Reasons)
	}
	row := result.Clean.Rows[0]
	if row["transactiondate"] != "2023-01-05" {
		t.Errorf("transactiondate = %q, want 2023-01-05", row["transactiondate"])
	}
	if row["ticketprice"] != "100.00" {
		t.Errorf("ticketprice = %q, want 100.00", row["ticketprice"])
	}

	wantReasons := []string{"totalamount mismatch", "invalid passengerid format", "duplicate transaction"}
	if len(result.Reasons) != len(wantReasons) {
		t.Fatalf("reasons = %v, want %v", result.Reasons, wantReasons)
	}
	for i, w := range wantReasons {
		if result.Reasons[i] != w {
			t.Errorf("reason[%d] = %q, want %q", i, result.Reasons[i], w)
		}
	}
}

func TestTransactionsMissingComponentAmount(t *testing.T) {
	input := makeTable(transactionColumns,
		transactionRow("40001", "P10420", "BA1234", "2023-Jan-05", "", "10.00", "5.00", "15.00"),
		transactionRow("40002", "P10421", "DL100", "2023-Jan-06", "", "10.00", "5.00", "20.00"),
		transactionRow("40003", "P10422", "AA7", "2023-Jan-07", "100.00", "10.00", "5.00", ""),
	)

	result, err := Clean(input, Transactions(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	checkPartitionInvariant(t, input, result)

	if result.Clean.Len() != 1 {
		t.Fatalf("clean rows = %d, want 1: %v", result.Clean.Len(), result.Reasons)
	}
	if id := result.Clean.Rows[0]["transactionid"]; id != "40001" {
		t.Errorf("clean transactionid = %q, want 40001", id)
	}
	for i, reason := range result.Reasons {
		if reason != "totalamount mismatch" {
			t.Errorf("reason[%d] = %q, want totalamount mismatch", i, reason)
		}
	}
}

func TestTotalsMatch(t *testing.T) {
	tests := []struct {
		price, taxes, fees, total string
		want                      bool
	}{
		{"100.00", "10.00", "5.00", "115.00", true},
		{"100.00", "10.00", "5.00", "115.01", false},
		{"33.335", "0.00", "0.00", "33.34", true},
		{"bad", "10.00", "5.00", "15.00", false},
		{"100.00", "10.00", "5.00", "", false},
		{"", "10.00", "5.00", "15.00", true},
		{"", "", "", "0.00", true},
	}
	for _, tt := range tests {
		row := model.Row{
			"ticketprice": tt.price,
			"taxes":       tt.taxes,
			"baggagefees": tt.fees,
			"totalamount": tt.total,
		}
		if got := totalsMatch(row); got != tt.want {
			t.Errorf("totalsMatch(%s+%s+%s vs %s) = %v, want %v",
				tt.price, tt.taxes, tt.fees, tt.total, got, tt.want)
		}
	}
}

func TestCleanNeverMutatesInput(t *testing.T) {
	input := makeTable(
		[]string{"AirportKey", "AirportName", "City", "Country"},
		[]string{" jfk ", "kennedy", "new york", "usa"},
	)
	if _, err := Clean(input, Airports(), nil); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if input.Rows[0]["AirportKey"] != " jfk " {
		t.Errorf("input mutated: %v", input.Rows[0])
	}
	if input.Columns[0] != "AirportKey" {
		t.Errorf("input columns mutated: %v", input.Columns)
	}
}

func TestDuplicateKeepsFirstAcrossEntities(t *testing.T) {
	// Generic keep-first check used by every duplicate rule.
	table := makeTable([]string{"k"}, []string{"A"}, []string{"B"}, []string{"A"}, []string{"A"})
	dup := markDuplicates(table, func(r model.Row) string { return r["k"] })
	want := []bool{false, false, true, true}
	for i, w := range want {
		if dup[i] != w {
			t.Errorf("dup[%d] = %v, want %v", i, dup[i], w)
		}
	}
}

func TestCleanReasonAlignment(t *testing.T) {
	// Quarantine reasons line up with quarantine rows even when valid and
	// invalid rows interleave.
	input := makeTable(
		[]string{"AirportKey", "AirportName", "City", "Country"},
		[]string{"JFK", "Kennedy", "New York", "United States"},
		[]string{"BAD1", "Nowhere", "Nowhere", "Nowhere"},
		[]string{"LHR", "Heathrow", "London", "United Kingdom"},
		[]string{"SYD", "", "Sydney", "Australia"},
	)
	result, err := Clean(input, Airports(), nil)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.Quarantine.Len() != 2 {
		t.Fatalf("quarantine = %d, want 2", result.Quarantine.Len())
	}
	for i, row := range result.Quarantine.Rows {
		if row[ReasonColumn] != result.Reasons[i] {
			t.Errorf("row %d reason column %q != reasons[%d] %q",
				i, row[ReasonColumn], i, result.Reasons[i])
		}
	}
	fmtReason := result.Quarantine.Rows[0][ReasonColumn]
	if fmtReason != "invalid airportkey format" {
		t.Errorf("reason = %q, want invalid airportkey format", fmtReason)
	}
}
