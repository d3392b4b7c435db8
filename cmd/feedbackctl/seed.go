package main

import "freelancer-feedback/internal/domain"

func seedFeedback() []domain.FeedbackInput {
	comment := func(s string) *string { return &s }
	return []domain.FeedbackInput{
		{
			Email:          "client1@example.com",
			FreelancerName: "John Smith",
			ProfileURL:     "https://www.upwork.com/freelancers/johnsmith",
			Ratings:        domain.Ratings{Communication: 5, Quality: 4, Value: 5, Timeliness: 4, Expertise: 5, Overall: 5},
			Comments:       comment("John was excellent to work with. Very responsive and delivered high-quality work."),
		},
		{
			Email:          "client2@example.com",
			FreelancerName: "John Smith",
			ProfileURL:     "https://www.upwork.com/freelancers/johnsmith",
			Ratings:        domain.Ratings{Communication: 4, Quality: 5, Value: 4, Timeliness: 3, Expertise: 5, Overall: 4},
			Comments:       comment("Great expertise, but sometimes took a bit longer to respond."),
		},
		{
			Email:          "client3@example.com",
			FreelancerName: "Sarah Johnson",
			ProfileURL:     "https://www.upwork.com/freelancers/sarahjohnson",
			Ratings:        domain.Ratings{Communication: 5, Quality: 5, Value: 4, Timeliness: 5, Expertise: 4, Overall: 5},
			Comments:       comment("Sarah was amazing! She delivered the project ahead of schedule."),
		},
	}
}
