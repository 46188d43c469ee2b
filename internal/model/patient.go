package model

import "time"

// PatientRoleTag は患者一覧に表示する対象のロールタグ。
const PatientRoleTag = "Patient"

// Gender は患者の性別を表す。Male/Female以外の値もそのまま保持する。
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// PatientInfo は患者固有の付帯情報。
type PatientInfo struct {
	Gender      Gender
	DateOfBirth *time.Time
}

// PatientRecord はバックエンドから取得した患者一覧の1件を表す。
// このシステムからは読み取り専用。
type PatientRecord struct {
	ID          string
	FullName    string
	Email       string
	PatientInfo *PatientInfo
	Role        string
}

// Gender はPatientInfoが無い場合も含めて性別を返す。
func (p PatientRecord) Gender() Gender {
	if p.PatientInfo == nil {
		return ""
	}
	return p.PatientInfo.Gender
}

// DateOfBirth はPatientInfoが無い場合も含めて生年月日を返す。
func (p PatientRecord) DateOfBirth() *time.Time {
	if p.PatientInfo == nil {
		return nil
	}
	return p.PatientInfo.DateOfBirth
}
