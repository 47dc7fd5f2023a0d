// Package domain models US domestic flight on-time records and the
// prediction contract built on them.
//
// # Data Source
//
// Training data is a flat CSV export of the Bureau of Transportation
// Statistics on-time performance table, one row per scheduled flight leg.
// Column names follow the BTS field names (Month, DayofMonth, DayOfWeek,
// OriginAirportID, CRSDepTime, ArrDel15, ...).
//
// # Conventions
//
// Scheduled times:
//
//	CRSDepTime and CRSArrTime are local clock times in HHMM integer form,
//	e.g. 1435 = 14:35. The hour feature is HHMM / 100 (integer division).
//
// Day of week:
//
//	1 = Monday through 7 = Sunday.
//
// Airport identifiers:
//
//	OriginAirportID and DestAirportID are the stable BTS numeric airport ids
//	(e.g. 13930 = Chicago O'Hare, 12892 = Los Angeles International), not the
//	three-letter IATA codes, which can be reassigned.
//
// Delay label:
//
//	ArrDel15 is 1 when the flight arrived 15 or more minutes after its
//	scheduled arrival, 0 otherwise. Cancelled flights (Cancelled = 1) have no
//	arrival and are dropped before training.
//
// Missing values:
//
//	Every remaining missing value is replaced with zero (the string "0" for
//	text columns). The serving artifacts were fit on data cleaned this way, so
//	the policy is part of the artifact contract.
//
// # Serving Defaults
//
// The public prediction endpoint accepts only day of week and the two airport
// ids. The other five model inputs are fixed: month 6, day of month 15,
// departure hour 12, arrival hour 14, and carrier encoding 0. Changing any of
// these changes every prediction the service returns.
package domain
