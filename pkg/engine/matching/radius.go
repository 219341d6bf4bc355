package matching

// RadiusPolicy urutan radius pencarian candidate. Next dipanggil kalau radius sebelumnya tidak dapat candidate.
type RadiusPolicy interface {
	Initial() float64
	Next(current float64) (float64, bool)
}

// GeometricRadius radius dikali Factor tiap percobaan sampai Max.
type GeometricRadius struct {
	InitialRadius float64
	Max           float64
	Factor        float64
}

func RadiusFromConfig(cfg Config) GeometricRadius {
	return GeometricRadius{
		InitialRadius: cfg.InitialSearchRadius,
		Max:           cfg.MaxSearchRadius,
		Factor:        cfg.RadiusGrowthFactor,
	}
}

func (g GeometricRadius) Initial() float64 {
	return g.InitialRadius
}

func (g GeometricRadius) Next(current float64) (float64, bool) {
	if current >= g.Max || g.Factor <= 1 {
		return current, false
	}
	next := current * g.Factor
	if next > g.Max {
		next = g.Max
	}
	return next, true
}
