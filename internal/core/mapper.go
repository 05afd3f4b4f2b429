package core

// ExpandOperations decomposes a transaction lifecycle event into the
// ordered signed operations the aggregate store applies.
//
// Created, and updates with no previous values, produce one forward
// operation. Updates with previous values produce a reversal of the old
// contribution followed by the forward operation; the two may land in
// different period buckets when the date moved across a month boundary.
// Deletes produce one operation with the type inverted: adding the
// opposite type with the same amount cancels the balance contribution of
// the original transaction. Gross totals are not restored, only their
// difference nets out.
func ExpandOperations(kind EventKind, e TransactionEvent) []ApplyOperation {
	forward := ApplyOperation{Type: e.Type, Amount: e.Amount, Date: e.Date}

	switch kind {
	case EventDeleted:
		return []ApplyOperation{{Type: e.Type.Invert(), Amount: e.Amount, Date: e.Date}}
	case EventUpdated:
		if !e.HasPrevious() {
			// First-time accumulation, nothing to undo.
			return []ApplyOperation{forward}
		}
		reversal := ApplyOperation{
			Type:   e.Type,
			Amount: e.PreviousAmount.Neg(),
			Date:   *e.PreviousDate,
		}
		return []ApplyOperation{reversal, forward}
	default:
		return []ApplyOperation{forward}
	}
}
