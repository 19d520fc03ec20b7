package ptype

import "strconv"

// Kind tags a PType with one member of the closed type set.
//
// The zero Kind is KindDynamic, so the zero PType is the dynamic type. New kinds
// must be appended before kindCount and registered in kindNames.
type Kind int

const (
	KindDynamic Kind = iota
	KindBool
	KindTinyInt
	KindSmallInt
	KindInteger
	KindBigInt
	KindNumeric
	KindDecimal
	KindReal
	KindDouble
	KindChar
	KindVarchar
	KindString
	KindBlob
	KindClob
	KindDate
	KindTime
	KindTimeZ
	KindTimestamp
	KindTimestampZ
	KindIntervalYM
	KindIntervalDT
	KindArray
	KindBag
	KindRow
	KindStruct
	KindUnknown
	KindVariant

	kindCount
)

var kindNames = [kindCount]string{
	KindDynamic:    "DYNAMIC",
	KindBool:       "BOOL",
	KindTinyInt:    "TINYINT",
	KindSmallInt:   "SMALLINT",
	KindInteger:    "INTEGER",
	KindBigInt:     "BIGINT",
	KindNumeric:    "NUMERIC",
	KindDecimal:    "DECIMAL",
	KindReal:       "REAL",
	KindDouble:     "DOUBLE",
	KindChar:       "CHAR",
	KindVarchar:    "VARCHAR",
	KindString:     "STRING",
	KindBlob:       "BLOB",
	KindClob:       "CLOB",
	KindDate:       "DATE",
	KindTime:       "TIME",
	KindTimeZ:      "TIMEZ",
	KindTimestamp:  "TIMESTAMP",
	KindTimestampZ: "TIMESTAMPZ",
	KindIntervalYM: "INTERVAL_YM",
	KindIntervalDT: "INTERVAL_DT",
	KindArray:      "ARRAY",
	KindBag:        "BAG",
	KindRow:        "ROW",
	KindStruct:     "STRUCT",
	KindUnknown:    "UNKNOWN",
	KindVariant:    "VARIANT",
}

// String returns the upper-case kind name, e.g. "DECIMAL".
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "KIND(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// IsExactNumeric reports whether k is an integer, NUMERIC or DECIMAL kind.
func (k Kind) IsExactNumeric() bool {
	switch k {
	case KindTinyInt, KindSmallInt, KindInteger, KindBigInt, KindNumeric, KindDecimal:
		return true
	}
	return false
}

// IsNumeric reports whether k is any numeric kind.
func (k Kind) IsNumeric() bool {
	return k.IsExactNumeric() || k == KindReal || k == KindDouble
}

// IsText reports whether k is a character string kind.
func (k Kind) IsText() bool {
	switch k {
	case KindChar, KindVarchar, KindString, KindClob:
		return true
	}
	return false
}

// IsDatetime reports whether k is a date, time or timestamp kind.
func (k Kind) IsDatetime() bool {
	switch k {
	case KindDate, KindTime, KindTimeZ, KindTimestamp, KindTimestampZ:
		return true
	}
	return false
}

// IsInterval reports whether k is one of the two interval kinds.
func (k Kind) IsInterval() bool {
	return k == KindIntervalYM || k == KindIntervalDT
}

// IsCollection reports whether k is ARRAY or BAG.
func (k Kind) IsCollection() bool {
	return k == KindArray || k == KindBag
}

// IsTuple reports whether k is ROW or STRUCT.
func (k Kind) IsTuple() bool {
	return k == KindRow || k == KindStruct
}

// IsOpen reports whether values of k may hold any value at runtime, so static
// checks must not reject operations on them.
func (k Kind) IsOpen() bool {
	return k == KindDynamic || k == KindVariant || k == KindUnknown
}
