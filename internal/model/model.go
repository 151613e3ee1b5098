package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ExtensionInfo{},
	&Session{},
	&VesselFrame{},
	&ArrowRecord{},
}

// ExtensionInfo identifies the installation that wrote the database.
type ExtensionInfo struct {
	gorm.Model
	Name    string `json:"name" gorm:"size:127"`
	Version string `json:"version" gorm:"size:64"`
}

func (*ExtensionInfo) TableName() string {
	return "extension_infos"
}

// Session is one recording run, from :SESSION:START: to :SESSION:END:.
type Session struct {
	gorm.Model
	SessionUUID      string       `json:"sessionId" gorm:"size:36;uniqueIndex"`
	Name             string       `json:"name" gorm:"size:200"`
	StartTime        time.Time    `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime          sql.NullTime `json:"endTime" gorm:"type:timestamptz"`
	ExtensionVersion string       `json:"extensionVersion" gorm:"size:64"`

	Frames []VesselFrame `json:"-"`
}

func (*Session) TableName() string {
	return "sessions"
}

// VesselFrame is one marker update for one vessel.
type VesselFrame struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;index:idx_vesselframe_time"`
	SessionID    uint       `json:"sessionId" gorm:"index:idx_vesselframe_session_id"`
	Session      Session    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	VesselID     string     `json:"vesselId" gorm:"size:64;index:idx_vesselframe_vessel_id"`
	FrameNumber  uint       `json:"frame" gorm:"index:idx_vesselframe_frame"`
	CenterOfMass geom.Point `json:"centerOfMass"`
	RootPosition geom.Point `json:"rootPosition"`
	Skipped      string     `json:"skipped" gorm:"size:16"`

	// Raw per-category totals before the cutoffs were applied.
	Forces datatypes.JSON `json:"forces"`
	Arrows datatypes.JSON `json:"arrows"`
}

func (*VesselFrame) TableName() string {
	return "vessel_frames"
}

// ArrowRecord is one reported arrow, stored with its geometry for spatial queries.
type ArrowRecord struct {
	ID          uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time       `json:"time" gorm:"type:timestamptz;index:idx_arrow_time"`
	SessionID   uint            `json:"sessionId" gorm:"index:idx_arrow_session_id"`
	Session     Session         `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	VesselID    string          `json:"vesselId" gorm:"size:64;index:idx_arrow_vessel_id"`
	FrameNumber uint            `json:"frame"`
	Category    string          `json:"category" gorm:"size:32;index:idx_arrow_category"`
	Position    geom.Point      `json:"position"`
	Segment     geom.LineString `json:"segment"` // tail to head
	DirectionX  float64         `json:"directionX"`
	DirectionY  float64         `json:"directionY"`
	DirectionZ  float64         `json:"directionZ"`
	Magnitude   float64         `json:"magnitude"`
}

func (*ArrowRecord) TableName() string {
	return "arrow_records"
}
