package store

// Record is one persisted collection blob. Each of the six collections is
// serialized whole into a single row; mutations rewrite the entire value.
type Record struct {
	Key   string `gorm:"column:key;primaryKey;size:190;not null"`
	Value string `gorm:"column:value;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Record) TableName() string {
	return "records"
}

// Persisted collection keys. The aff_ prefix matches the backup files the
// hub has always produced, so exports from old installs import cleanly.
const (
	keyProducts     = "aff_products"
	keySettings     = "aff_settings"
	keyStats        = "aff_stats"
	keySubscribers  = "aff_subscribers"
	keyEmailHistory = "aff_email_history"
	keyFBHistory    = "aff_fb_history"
)

var allKeys = []string{
	keyProducts,
	keySettings,
	keyStats,
	keySubscribers,
	keyEmailHistory,
	keyFBHistory,
}
