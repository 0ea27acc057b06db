// Package monitor решает, нужно ли уведомление о низком остатке.
package monitor

// Decision: результат проверки порога.
type Decision int

const (
	NoAction Decision = iota
	// FireNotification: остаток ниже порога, флаг ещё не выставлен.
	FireNotification
	// ClearFlag: остаток восстановлен и политика разрешает повторное срабатывание.
	ClearFlag
)

func (d Decision) String() string {
	switch d {
	case FireNotification:
		return "fire"
	case ClearFlag:
		return "clear"
	default:
		return "none"
	}
}

// Evaluate: чистая функция без побочных эффектов.
// Строгое сравнение: quantity == threshold уведомления не вызывает.
func Evaluate(quantity, threshold float64, notified, rearm bool) Decision {
	if quantity < threshold {
		if notified {
			return NoAction
		}
		return FireNotification
	}
	if rearm && notified {
		return ClearFlag
	}
	return NoAction
}

// Monitor хранит настроенный порог и политику re-arm.
type Monitor struct {
	Threshold float64
	Rearm     bool
}

func New(threshold float64, rearm bool) Monitor {
	return Monitor{Threshold: threshold, Rearm: rearm}
}

func (m Monitor) Evaluate(quantity float64, notified bool) Decision {
	return Evaluate(quantity, m.Threshold, notified, m.Rearm)
}
