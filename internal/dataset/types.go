package dataset

const (
	StatusAwaitingPickup = "Awaiting Pickup"
	StatusNormal         = "Normal"
	StatusOverloaded     = "Overloaded"
)

type Order struct {
	ID           string   `json:"id"`
	CustomerName string   `json:"customer_name"`
	MerchantID   string   `json:"merchant_id"`
	DriverID     string   `json:"driver_id"`
	Status       string   `json:"status"`
	Items        []string `json:"items,omitempty"`

	// DriverLocation is filled from the drivers table on lookup.
	DriverLocation *int `json:"driver_current_location,omitempty"`
}

// Merchant is a restaurant. Location is a point on a one-dimensional line.
type Merchant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Location     int    `json:"location"`
	PrepTimeMins int    `json:"prep_time_mins"`
	Status       string `json:"status"`
}

type Driver struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CurrentLocation int    `json:"current_location"`
}

// Snapshot is the parsed content of the data file.
type Snapshot struct {
	Orders      map[string]Order    `json:"orders"`
	Restaurants map[string]Merchant `json:"restaurants"`
	Drivers     map[string]Driver   `json:"drivers"`
}

type PendingOrder struct {
	OrderID  string   `json:"order_id"`
	Merchant Merchant `json:"merchant"`
	Distance int      `json:"distance"`
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
