package constants

const (
	TechnicianStatusAvailable = "available"
	TechnicianStatusBusy      = "busy"
	TechnicianStatusOffDuty   = "off_duty"
)

const (
	CommissionStatusPending  = "pending"
	CommissionStatusApproved = "approved"
	CommissionStatusPaid     = "paid"
)

func IsCommissionStatus(code string) bool {
	return contains([]string{CommissionStatusPending, CommissionStatusApproved, CommissionStatusPaid}, code)
}
