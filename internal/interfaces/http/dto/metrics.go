package dto

// PropertyURI binds the property id path parameter
type PropertyURI struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// MonthlyMetricsQuery selects the reporting window. Month takes precedence;
// otherwise MonthStart is required and MonthEnd is optional.
type MonthlyMetricsQuery struct {
	Month      string `form:"month" binding:"omitempty,year_month"`
	MonthStart string `form:"month_start" binding:"omitempty,datetime=2006-01-02"`
	MonthEnd   string `form:"month_end" binding:"omitempty,datetime=2006-01-02"`
}

// TrendQuery selects how many months the trend covers
type TrendQuery struct {
	Months int `form:"months" binding:"omitempty,min=1"`
}
