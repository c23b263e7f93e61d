package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

const (
	seedAdminPassword   = "admin123"
	seedTeacherPassword = "teacher123"
	seedStudentPassword = "student123"
)

var seedTeachers = []user.User{
	{Name: "Mrs. Sunita Verma", Email: "sunita.verma@school.edu", Department: "Mathematics"},
	{Name: "Mr. Amit Sharma", Email: "amit.sharma@school.edu", Department: "English"},
	{Name: "Ms. Priya Patel", Email: "priya.patel@school.edu", Department: "Hindi"},
	{Name: "Mr. Rajesh Kumar", Email: "rajesh.kumar@school.edu", Department: "Science"},
}

// 20 names per class, in class order 10A, 10B, 10C, 10D.
var seedStudentNames = []string{
	"Rohit Sharma", "Virat Singh", "Rahul Kapoor", "Mohit Gupta", "Sahil Mehta",
	"Nikhil Kumar", "Ankur Joshi", "Deepak Khan", "Suresh Reddy", "Ramesh Verma",
	"Sneha Iyer", "Meera Nair", "Geeta Chopra", "Suman Desai", "Rekha Bhatt",
	"Komal Menon", "Neha Kapoor", "Shweta Malhotra", "Manisha Agarwal", "Sunita Saxena",

	"Amit Tiwari", "Vijay Yadav", "Rakesh Dubey", "Sunil Pandey", "Manoj Mishra",
	"Arun Srivastava", "Karan Chauhan", "Ravi Rawat", "Gaurav Negi", "Pankaj Bisht",
	"Anjali Thakur", "Pooja Rawat", "Simran Kaur", "Radhika Jain", "Divya Goyal",
	"Shreya Bansal", "Tanvi Garg", "Kritika Seth", "Aditi Batra", "Megha Arora",

	"Akash Bhatia", "Rohan Dhawan", "Tarun Grover", "Varun Khanna", "Kunal Luthra",
	"Sanjay Mehra", "Ajay Nagpal", "Vishal Oberoi", "Raj Pahwa", "Dev Qureshi",
	"Bhavna Rastogi", "Chhaya Sabharwal", "Damini Tandon", "Esha Uppal", "Falguni Vohra",
	"Garima Walia", "Harini Xavier", "Ira Yadav", "Jaya Zaveri", "Kamini Ahuja",

	"Aarav Sharma", "Vivaan Patel", "Aditya Singh", "Vihaan Gupta", "Arjun Mehta",
	"Sai Kumar", "Reyansh Joshi", "Ayaan Khan", "Krishna Reddy", "Ishaan Verma",
	"Ananya Iyer", "Diya Nair", "Priya Chopra", "Saanvi Desai", "Anika Bhatt",
	"Kavya Menon", "Riya Kapoor", "Isha Malhotra", "Nisha Agarwal", "Pooja Saxena",
}

var seedClassConfig = []struct {
	name    string
	subject string
}{
	{"10A", "Mathematics"},
	{"10B", "English"},
	{"10C", "Hindi"},
	{"10D", "Science"},
}

// seed loads a demo school: one admin, four teachers, four classes of
// twenty students each. Safe to run once against an empty database.
func (cli *commandLine) seed() error {
	now := time.Now().UTC()

	admin := user.User{
		Name:      "Admin User",
		Username:  "admin",
		Email:     "admin@school.edu",
		IsActive:  true,
		Roles:     user.AdminRoles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := admin.SetPassword(seedAdminPassword); err != nil {
		return err
	}
	if _, err := cli.usrRepo.CreateUser(admin); err != nil {
		return err
	}
	logger.Println("admin created:", admin.Email)

	teachers := make([]user.User, 0, len(seedTeachers))
	for _, t := range seedTeachers {
		t.Username = strings.SplitN(t.Email, "@", 2)[0]
		t.IsActive = true
		t.Roles = user.TeacherRoles
		t.CreatedAt = now
		t.UpdatedAt = now
		if err := t.SetPassword(seedTeacherPassword); err != nil {
			return err
		}
		t, err := cli.usrRepo.CreateUser(t)
		if err != nil {
			return err
		}
		teachers = append(teachers, t)
	}
	logger.Printf("%d teachers created", len(teachers))

	for i, cfg := range seedClassConfig {
		names := seedStudentNames[i*20 : (i+1)*20]
		prefix := strings.ToLower(cfg.name)

		studentIDs := make([]int, 0, len(names))
		for j, name := range names {
			s := user.User{
				Name:       name,
				Username:   fmt.Sprintf("%s.student%d", prefix, j+1),
				Email:      fmt.Sprintf("%s.student%d@school.edu", prefix, j+1),
				RollNumber: fmt.Sprintf("%s%03d", cfg.name, j+1),
				IsActive:   true,
				Roles:      user.StudentRoles,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.SetPassword(seedStudentPassword); err != nil {
				return err
			}
			s, err := cli.usrRepo.CreateUser(s)
			if err != nil {
				return err
			}
			studentIDs = append(studentIDs, s.ID)
		}

		cls, err := cli.clsRepo.CreateClass(class.Class{
			Name:      cfg.name,
			Subject:   cfg.subject,
			TeacherID: teachers[i].ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		for _, id := range studentIDs {
			if _, err := cli.clsRepo.AddStudent(cls.ID, id); err != nil {
				return err
			}
		}
		logger.Printf("class %q created with %d students", cls.Name, len(studentIDs))
	}
	return nil
}
