package domain

import "time"

// ShipmentSummary backs the admin shipment summary cards.
type ShipmentSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	InTransit int `json:"inTransit"`
	Delivered int `json:"delivered"`
}

type DashboardMetrics struct {
	TotalShipments      int     `json:"totalShipments"`
	TotalCustomers      int     `json:"totalCustomers"`
	TotalRevenue        float64 `json:"totalRevenue"`
	DeliverySuccessRate float64 `json:"deliverySuccessRate"`
}

type StatusCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// MonthlyShipments holds per-status counts for one calendar month.
type MonthlyShipments struct {
	Name      string `json:"name"` // short month name, e.g. "Jan"
	Delivered int    `json:"Delivered"`
	Pending   int    `json:"Pending"`
	Cancelled int    `json:"Cancelled"`
}

type MonthlyRevenue struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

type MonthlyCustomers struct {
	Name      string `json:"name"`
	Customers int    `json:"customers"`
}

type Activity struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"` // "shipment" or "customer"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type DashboardCharts struct {
	ShipmentData       []MonthlyShipments `json:"shipmentData"`
	StatusDistribution []StatusCount      `json:"statusDistribution"`
	RevenueData        []MonthlyRevenue   `json:"revenueData"`
	CustomerGrowthData []MonthlyCustomers `json:"customerGrowthData"`
}

type DashboardStats struct {
	Metrics          DashboardMetrics `json:"metrics"`
	Charts           DashboardCharts  `json:"charts"`
	RecentActivities []Activity       `json:"recentActivities"`
}

type StaffMetrics struct {
	AssignedShipments int `json:"assignedShipments"`
	PendingDeliveries int `json:"pendingDeliveries"`
	CompletedToday    int `json:"completedToday"`
}

type StaffStats struct {
	Metrics           StaffMetrics `json:"metrics"`
	PriorityShipments []Shipment   `json:"priorityShipments"`
}

// StaffSummary backs the admin staff management cards.
type StaffSummary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Idle     int `json:"idle"`
}

// StaffListItem is the compact shape used by assignment dropdowns.
type StaffListItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
