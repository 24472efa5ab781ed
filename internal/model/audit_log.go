package model

import "gorm.io/datatypes"

// AuditLog 成绩变更的审计记录，只追加
type AuditLog struct {
	UUIDBase
	Action     string                      `gorm:"size:50;index" json:"action"`
	ResultID   string                      `gorm:"type:varchar(36);index" json:"resultId"`
	OperatorID string                      `gorm:"size:64;index" json:"operatorId"`
	Summary    string                      `gorm:"type:text" json:"summary"`
	Changes    datatypes.JSONSlice[string] `gorm:"type:json" json:"changes"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
