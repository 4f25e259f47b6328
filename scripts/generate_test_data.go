package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/tally/internal/config"
	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/service"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
	demoDays     = 60
)

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	userID, err := createDemoUser()
	if err != nil {
		log.Fatal("创建演示用户失败:", err)
	}

	today := schedule.Today(cfg.Location())
	activities, err := createDemoActivities(userID, today)
	if err != nil {
		log.Fatal("创建演示活动失败:", err)
	}

	logged := createDemoLogs(userID, today, demoDays)
	createDemoSpecialDays(userID, today)
	createDemoTodos(userID)

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: %s (密码: %s)\n", demoUsername, demoPassword)
	fmt.Printf("新建活动: %d 个，打卡: %d 条\n", activities, logged)
}

// 创建演示用户，已存在时直接复用
func createDemoUser() (uint, error) {
	users := service.NewUserService(db.DB)
	if existing, err := users.FindByUsername(demoUsername); err == nil {
		fmt.Println("用户已存在，跳过创建")
		return existing.ID, nil
	} else if !errors.Is(err, service.ErrUserNotFound) {
		return 0, err
	}

	user, err := users.Register(demoUsername, demoPassword)
	if err != nil {
		return 0, err
	}
	fmt.Println("✅ 演示用户创建完成")
	return user.ID, nil
}

// demoActivities 覆盖每日、按星期、双周以及三种完成方式
func demoActivities(anchor schedule.Date) []service.ActivityInput {
	return []service.ActivityInput{
		{Name: "晨跑", Description: "5 公里轻松跑", Points: 10, DaysOfWeek: []string{"mon", "wed", "fri"}},
		{Name: "阅读", Description: "至少 30 页", Points: 5},
		{Name: "冥想", Points: 5, CompletionType: "rating", RatingScale: 5},
		{Name: "力量训练", Points: 15, DaysOfWeek: []string{"tue", "thu", "sat"}, CompletionType: "energy_quality"},
		{Name: "大扫除", Points: 20, DaysOfWeek: []string{"sun"}, ScheduleFrequency: "biweekly", BiweeklyStartDate: &anchor},
		{Name: "熬夜", Description: "负分活动", Points: -5},
	}
}

// 创建演示活动，已有活动时跳过，返回新建数量
func createDemoActivities(userID uint, today schedule.Date) (int, error) {
	activitySvc := service.NewActivityService(db.DB)
	existing, err := activitySvc.List(userID, service.ActivityFilter{IncludeInactive: true})
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		fmt.Println("活动已存在，跳过创建")
		return 0, nil
	}

	// 锚定到统计窗口开始那周的周日
	anchor := today.AddDays(-demoDays).StartOfWeek().AddDays(6)
	inputs := demoActivities(anchor)
	for _, input := range inputs {
		if _, err := activitySvc.Create(userID, input); err != nil {
			return 0, fmt.Errorf("create %s: %w", input.Name, err)
		}
	}

	fmt.Println("✅ 演示活动创建完成")
	return len(inputs), nil
}

// 按确定的节奏生成最近 days 天的打卡，约七成完成率
func createDemoLogs(userID uint, today schedule.Date, days int) int {
	activitySvc := service.NewActivityService(db.DB)
	logSvc := service.NewLogService(db.DB)

	activities, err := activitySvc.List(userID, service.ActivityFilter{})
	if err != nil {
		log.Printf("读取活动失败: %v", err)
		return 0
	}

	created := 0
	for offset := days - 1; offset >= 0; offset-- {
		date := today.AddDays(-offset)
		for i, activity := range activities {
			if !service.ActivityRule(activity).ScheduledOn(date) {
				continue
			}
			if (offset*7+i*3)%10 >= 7 {
				continue
			}

			input := service.LogInput{ActivityID: activity.ID, Date: date}
			switch activity.CompletionType {
			case db.CompletionTypeRating:
				input.RatingValue = intPtr(1 + (offset+i)%activity.RatingScale)
			case db.CompletionTypeEnergyQuality:
				input.EnergyLevel = intPtr(1 + offset%5)
				input.QualityRating = intPtr(1 + (offset+2)%5)
			}

			if _, err := logSvc.Create(userID, input); err != nil {
				if errors.Is(err, service.ErrLogExists) {
					continue
				}
				log.Printf("创建打卡失败: %v", err)
				continue
			}
			created++
		}
	}

	fmt.Println("✅ 演示打卡创建完成")
	return created
}

// 创建演示特殊日
func createDemoSpecialDays(userID uint, today schedule.Date) {
	specialDays := service.NewSpecialDayService(db.DB)
	inputs := []service.SpecialDayInput{
		{Date: today.AddDays(-10), DayType: db.DayTypeRest, Notes: "周末放松"},
		{Date: today.AddDays(-20), DayType: db.DayTypeRecovery, Notes: "感冒恢复"},
	}
	for _, input := range inputs {
		if _, err := specialDays.Create(userID, input); err != nil && !errors.Is(err, service.ErrSpecialDayExists) {
			log.Printf("创建特殊日失败: %v", err)
		}
	}
	fmt.Println("✅ 演示特殊日创建完成")
}

// 创建演示待办
func createDemoTodos(userID uint) {
	todos := service.NewTodoService(db.DB)
	existing, err := todos.List(userID)
	if err != nil || len(existing) > 0 {
		return
	}
	for _, text := range []string{"续费健身卡", "买新跑鞋", "预约体检"} {
		if _, err := todos.Create(userID, service.TodoInput{Text: text, Category: "生活"}); err != nil {
			log.Printf("创建待办失败: %v", err)
		}
	}
	fmt.Println("✅ 演示待办创建完成")
}

func intPtr(v int) *int {
	return &v
}
