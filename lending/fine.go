package lending

// DailyFineRate is the penalty charged per whole calendar day a return is
// late: 10 currency units.
var DailyFineRate = MoneyFromUnits(10)

// FineFor computes the monetary penalty for returning a copy on returnDate
// when it was due on dueDate.
//
// This is a pure function: the fine is the number of whole calendar days the
// return is late multiplied by DailyFineRate. Same-day and early returns
// yield zero. The result a lending engine stores at close time is final and
// never recomputed.
func FineFor(dueDate Date, returnDate Date) Money {
	lateDays := dueDate.DaysUntil(returnDate)
	if lateDays <= 0 {
		return 0
	}

	return Money(int64(lateDays)) * DailyFineRate
}

// PotentialFine computes what the fine would be if an open loan were
// returned today. It is display-only and must not be written to any record;
// the authoritative fine is fixed when the loan is closed.
func PotentialFine(dueDate Date, today Date) Money {
	return FineFor(dueDate, today)
}
