package main

import (
	"fmt"
	"time"

	"github.com/haoche-next/internal/config"
	"github.com/haoche-next/internal/constants"
	"github.com/haoche-next/internal/logger"
	"github.com/haoche-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加品牌与车系
	brandPlans := []struct {
		Name      string
		Logo      string
		SortOrder int
		Series    []string
	}{
		{Name: "大众", Logo: "https://cdn.haoche.example/logos/volkswagen.png", SortOrder: 100, Series: []string{"朗逸", "帕萨特", "途观L"}},
		{Name: "丰田", Logo: "https://cdn.haoche.example/logos/toyota.png", SortOrder: 95, Series: []string{"卡罗拉", "凯美瑞", "汉兰达"}},
		{Name: "本田", Logo: "https://cdn.haoche.example/logos/honda.png", SortOrder: 90, Series: []string{"思域", "雅阁", "CR-V"}},
		{Name: "比亚迪", Logo: "https://cdn.haoche.example/logos/byd.png", SortOrder: 85, Series: []string{"秦PLUS", "宋PLUS", "汉"}},
		{Name: "特斯拉", Logo: "https://cdn.haoche.example/logos/tesla.png", SortOrder: 80, Series: []string{"Model 3", "Model Y"}},
		{Name: "宝马", Logo: "https://cdn.haoche.example/logos/bmw.png", SortOrder: 75, Series: []string{"3系", "5系", "X3"}},
		{Name: "奔驰", Logo: "https://cdn.haoche.example/logos/benz.png", SortOrder: 70, Series: []string{"C级", "E级", "GLC"}},
		{Name: "奥迪", Logo: "https://cdn.haoche.example/logos/audi.png", SortOrder: 65, Series: []string{"A4L", "A6L", "Q5L"}},
	}

	brandIDs := map[string]uint{}
	seriesIDs := map[string]uint{}
	for _, plan := range brandPlans {
		var brand models.Brand
		if err := models.DB.Where("name = ?", plan.Name).First(&brand).Error; err != nil {
			brand = models.Brand{Name: plan.Name, Logo: plan.Logo, SortOrder: plan.SortOrder}
			if err := models.DB.Create(&brand).Error; err != nil {
				stdLog.Printf("Failed to create brand %s: %v", plan.Name, err)
				continue
			}
			stdLog.Printf("Created brand: %s", plan.Name)
		} else {
			brand.Logo = plan.Logo
			brand.SortOrder = plan.SortOrder
			if err := models.DB.Save(&brand).Error; err != nil {
				stdLog.Printf("Failed to update brand %s: %v", plan.Name, err)
			}
		}
		brandIDs[plan.Name] = brand.ID

		for _, seriesName := range plan.Series {
			var series models.Series
			if err := models.DB.Where("brand_id = ? AND name = ?", brand.ID, seriesName).First(&series).Error; err != nil {
				series = models.Series{BrandID: brand.ID, Name: seriesName}
				if err := models.DB.Create(&series).Error; err != nil {
					stdLog.Printf("Failed to create series %s/%s: %v", plan.Name, seriesName, err)
					continue
				}
				stdLog.Printf("Created series: %s/%s", plan.Name, seriesName)
			}
			seriesIDs[plan.Name+"/"+seriesName] = series.ID
		}
	}

	// 添加演示用户（卖家已实名，买家未实名）
	userPlans := []struct {
		Phone        string
		DisplayName  string
		VerifyStatus string
	}{
		{Phone: "13800000001", DisplayName: "演示卖家", VerifyStatus: constants.UserVerifyStatusVerified},
		{Phone: "13800000002", DisplayName: "演示买家", VerifyStatus: constants.UserVerifyStatusUnverified},
	}

	userIDs := map[string]uint{}
	for _, plan := range userPlans {
		var user models.User
		if err := models.DB.Where("phone = ?", plan.Phone).First(&user).Error; err != nil {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte("haoche123456"), bcrypt.DefaultCost)
			if hashErr != nil {
				stdLog.Printf("Failed to hash seed password: %v", hashErr)
				continue
			}
			user = models.User{
				Phone:        plan.Phone,
				PasswordHash: string(hash),
				DisplayName:  plan.DisplayName,
				VerifyStatus: plan.VerifyStatus,
				Status:       constants.UserStatusActive,
			}
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", plan.Phone, err)
				continue
			}
			stdLog.Printf("Created user: %s", plan.Phone)
		}
		userIDs[plan.Phone] = user.ID
	}

	// 添加演示车源（覆盖各个状态）
	sellerID := userIDs["13800000001"]
	if sellerID == 0 {
		stdLog.Fatalf("seed seller missing, abort car seeding")
	}

	now := time.Now()
	listedAt := now.Add(-48 * time.Hour)
	carPlans := []struct {
		Title    string
		Brand    string
		Series   string
		Price    string
		Mileage  int64
		CityCode string
		Status   string
		Reject   string
		ListedAt *time.Time
	}{
		{Title: "2021款 大众朗逸 1.5L 自动舒适版", Brand: "大众", Series: "朗逸", Price: "82800", Mileage: 35600, CityCode: "310100", Status: constants.CarStatusOn, ListedAt: &listedAt},
		{Title: "2020款 丰田凯美瑞 2.5G 豪华版", Brand: "丰田", Series: "凯美瑞", Price: "158000", Mileage: 52000, CityCode: "310100", Status: constants.CarStatusOn, ListedAt: &listedAt},
		{Title: "2022款 比亚迪汉 EV 超长续航版", Brand: "比亚迪", Series: "汉", Price: "179900", Mileage: 21000, CityCode: "440100", Status: constants.CarStatusOn, ListedAt: &listedAt},
		{Title: "2019款 本田思域 220TURBO 燃动版", Brand: "本田", Series: "思域", Price: "98000", Mileage: 68000, CityCode: "440300", Status: constants.CarStatusPending},
		{Title: "2021款 特斯拉 Model 3 标准续航", Brand: "特斯拉", Series: "Model 3", Price: "185000", Mileage: 30000, CityCode: "110100", Status: constants.CarStatusDraft},
		{Title: "2018款 宝马3系 320Li 时尚型", Brand: "宝马", Series: "3系", Price: "166000", Mileage: 81000, CityCode: "110100", Status: constants.CarStatusRejected, Reject: "行驶证照片模糊，请重新上传"},
		{Title: "2020款 奥迪A4L 40TFSI 进取型", Brand: "奥迪", Series: "A4L", Price: "219000", Mileage: 45000, CityCode: "330100", Status: constants.CarStatusOff, ListedAt: &listedAt},
	}

	for _, plan := range carPlans {
		brandID := brandIDs[plan.Brand]
		seriesID := seriesIDs[plan.Brand+"/"+plan.Series]
		if brandID == 0 || seriesID == 0 {
			stdLog.Printf("Skip car %s: brand or series missing", plan.Title)
			continue
		}
		price, err := decimal.NewFromString(plan.Price)
		if err != nil {
			stdLog.Printf("Skip car %s: bad price %s", plan.Title, plan.Price)
			continue
		}

		var existing models.Car
		if err := models.DB.Where("owner_id = ? AND title = ?", sellerID, plan.Title).First(&existing).Error; err != nil {
			car := models.Car{
				OwnerID:      sellerID,
				BrandID:      brandID,
				SeriesID:     seriesID,
				Title:        plan.Title,
				Price:        models.NewMoneyFromDecimal(price),
				Mileage:      plan.Mileage,
				CityCode:     plan.CityCode,
				Status:       plan.Status,
				RejectReason: plan.Reject,
				ListedAt:     plan.ListedAt,
			}
			if err := models.DB.Create(&car).Error; err != nil {
				stdLog.Printf("Failed to create car %s: %v", plan.Title, err)
			} else {
				stdLog.Printf("Created car: %s [%s]", plan.Title, plan.Status)
			}
		} else {
			stdLog.Printf("Car already exists: %s", plan.Title)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Printf("- %d Brands with series\n", len(brandPlans))
	fmt.Println("- 2 Demo users (password: haoche123456)")
	fmt.Printf("- %d Demo cars across statuses\n", len(carPlans))
}
