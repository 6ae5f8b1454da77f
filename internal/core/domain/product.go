package domain

type WeightUnit string

const (
	WeightUnitKG WeightUnit = "kg"
	WeightUnitG  WeightUnit = "g"
)

type Weight struct {
	Value float64
	Unit  WeightUnit
}

// Kilograms normalizes the weight; anything that is not grams is taken as kg.
func (w Weight) Kilograms() float64 {
	if w.Unit == WeightUnitG {
		return w.Value / 1000
	}
	return w.Value
}

// Dimensions are in centimetres.
type Dimensions struct {
	Length  float64
	Breadth float64
	Height  float64
}

type Product struct {
	ID         string
	Name       string
	Code       string
	CategoryID string
	Weight     Weight
	Dimensions Dimensions
}

type Category struct {
	ID   string
	Name string
	HSN  string
}
