package check

import "github.com/roach88/planir/internal/ptype"

// Castable reports whether CAST from a value of type from to type to is
// defined. Open types (DYNAMIC, VARIANT, UNKNOWN) on either side are always
// castable since the decision moves to evaluation.
func Castable(from, to ptype.PType) bool {
	f, t := from.Kind(), to.Kind()
	switch {
	case f == t, f.IsOpen(), t.IsOpen():
		return true
	case f.IsText():
		// Text parses into any scalar.
		return !t.IsCollection() && !t.IsTuple() && t != ptype.KindBlob
	case t.IsText():
		return !f.IsCollection() && !f.IsTuple() && f != ptype.KindBlob
	case f.IsNumeric() || f == ptype.KindBool:
		return t.IsNumeric() || t == ptype.KindBool
	case f.IsDatetime() && t.IsDatetime():
		return datetimeCastable(f, t)
	case f.IsInterval() && t.IsInterval():
		return from.IntervalCode().YearMonth() == to.IntervalCode().YearMonth()
	case f.IsCollection():
		return t.IsCollection()
	case f.IsTuple():
		return t.IsTuple()
	case f == ptype.KindBlob:
		return t == ptype.KindBlob
	}
	return false
}

// datetimeCastable forbids only DATE to TIME and TIME to DATE.
func datetimeCastable(f, t ptype.Kind) bool {
	isTime := func(k ptype.Kind) bool { return k == ptype.KindTime || k == ptype.KindTimeZ }
	if f == ptype.KindDate && isTime(t) {
		return false
	}
	if isTime(f) && t == ptype.KindDate {
		return false
	}
	return true
}
