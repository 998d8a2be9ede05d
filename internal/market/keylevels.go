package market

// StaticKeyLevels serves configured resistance and support lists. The
// lists are copied on construction; callers get fresh slices so one
// evaluation cannot mutate another's view.
type StaticKeyLevels struct {
	resistance []float64
	support    []float64
}

// NewStaticKeyLevels copies the given lists into a provider.
func NewStaticKeyLevels(resistance, support []float64) *StaticKeyLevels {
	r := make([]float64, len(resistance))
	copy(r, resistance)
	s := make([]float64, len(support))
	copy(s, support)
	return &StaticKeyLevels{resistance: r, support: s}
}

// KeyLevels returns copies of the configured lists. The symbol argument
// is ignored; one provider serves one instrument.
func (p *StaticKeyLevels) KeyLevels(string) (resistance, support []float64, err error) {
	r := make([]float64, len(p.resistance))
	copy(r, p.resistance)
	s := make([]float64, len(p.support))
	copy(s, p.support)
	return r, s, nil
}
