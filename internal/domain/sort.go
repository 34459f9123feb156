package domain

import (
	"sort"
	"strings"
)

// SortRecords orders records in place the way the SQL stores do: by the
// option's key in the requested direction, then by record id ascending.
// Text keys compare bytewise.
func SortRecords(records []WeighbridgeRecord, option SortingOption, ascending bool) {
	sort.SliceStable(records, func(i, j int) bool {
		c := compareBy(records[i], records[j], option)
		if c == 0 {
			return records[i].RecordID < records[j].RecordID
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}

func compareBy(a, b WeighbridgeRecord, option SortingOption) int {
	switch option {
	case SortByNetWeight:
		return compareFloat(a.NetWeight(), b.NetWeight())
	case SortByDriverName:
		return strings.Compare(a.DriverName, b.DriverName)
	case SortByLicenseNumber:
		return strings.Compare(a.LicenseNumber, b.LicenseNumber)
	}
	return a.EntryDate.Compare(b.EntryDate)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
