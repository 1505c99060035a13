package model

// Student is a roster record managed through student.php.
type Student struct {
	ID          ID     `json:"id,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	BatchNumber string `json:"batchNumber"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	NICNumber   string `json:"nicNumber"`
}

// FullName joins first and last name for display.
func (s *Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentRequest is the payload for creating or updating a student.
type StudentRequest struct {
	FirstName   string `json:"firstName" binding:"required,min=1,max=100"`
	LastName    string `json:"lastName" binding:"required,min=1,max=100"`
	BatchNumber string `json:"batchNumber" binding:"max=50"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"omitempty,phone10"`
	NICNumber   string `json:"nicNumber" binding:"omitempty,nic"`
}

// ToStudent converts the request into a Student.
func (r StudentRequest) ToStudent() Student {
	return Student{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		BatchNumber: r.BatchNumber,
		Email:       r.Email,
		Phone:       r.Phone,
		NICNumber:   r.NICNumber,
	}
}
