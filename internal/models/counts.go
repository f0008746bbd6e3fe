package models

// Category is one of the four coarse vehicle classes that are counted
type Category string

const (
	CategoryCar   Category = "car"
	CategoryBike  Category = "bike"
	CategoryBus   Category = "bus"
	CategoryTruck Category = "truck"
)

// AllCategories lists the categories in report order
var AllCategories = []Category{CategoryCar, CategoryBike, CategoryBus, CategoryTruck}

// categoryByLabel maps detector class labels to counted categories.
// Labels missing from this table never take part in counting.
var categoryByLabel = map[string]Category{
	"car":        CategoryCar,
	"bus":        CategoryBus,
	"truck":      CategoryTruck,
	"motorcycle": CategoryBike,
	"bicycle":    CategoryBike,
}

// CategoryForLabel returns the category for a detector label
func CategoryForLabel(label string) (Category, bool) {
	c, ok := categoryByLabel[label]
	return c, ok
}

// Index returns the position of the category in AllCategories, or -1
func (c Category) Index() int {
	switch c {
	case CategoryCar:
		return 0
	case CategoryBike:
		return 1
	case CategoryBus:
		return 2
	case CategoryTruck:
		return 3
	}
	return -1
}

// Direction of a line crossing
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// CategoryCounts holds one counter per category
type CategoryCounts struct {
	Car   int `json:"car"`
	Bike  int `json:"bike"`
	Bus   int `json:"bus"`
	Truck int `json:"truck"`
}

// Get returns the count for a category
func (cc CategoryCounts) Get(c Category) int {
	switch c {
	case CategoryCar:
		return cc.Car
	case CategoryBike:
		return cc.Bike
	case CategoryBus:
		return cc.Bus
	case CategoryTruck:
		return cc.Truck
	}
	return 0
}

// Inc increments the count for a category
func (cc *CategoryCounts) Inc(c Category) {
	switch c {
	case CategoryCar:
		cc.Car++
	case CategoryBike:
		cc.Bike++
	case CategoryBus:
		cc.Bus++
	case CategoryTruck:
		cc.Truck++
	}
}

// DirectionalCounts is the per-direction part of Counts
type DirectionalCounts struct {
	Total      int            `json:"total"`
	ByCategory CategoryCounts `json:"by_category"`
}

// Counts is the aggregate result of a counting run
type Counts struct {
	Total      int               `json:"total"`
	ByCategory CategoryCounts    `json:"by_category"`
	In         DirectionalCounts `json:"in"`
	Out        DirectionalCounts `json:"out"`
}

// Record adds one counted object
func (c *Counts) Record(category Category, direction Direction) {
	c.Total++
	c.ByCategory.Inc(category)
	if direction == DirectionIn {
		c.In.Total++
		c.In.ByCategory.Inc(category)
		return
	}
	c.Out.Total++
	c.Out.ByCategory.Inc(category)
}

// CountEvent describes the single count contributed by one track
type CountEvent struct {
	TrackID   int64     `json:"track_id"`
	Category  Category  `json:"category"`
	Direction Direction `json:"direction"`
	Frame     int64     `json:"frame"`
}
